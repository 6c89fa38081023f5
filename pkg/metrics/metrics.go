package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message ingestion metrics
var (
	MessagesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutt_messages_parsed_total",
			Help: "Total number of messages run through the header/MIME parser",
		},
		[]string{"result"},
	)

	MimePartsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mutt_mime_parts_parsed_total",
			Help: "Total number of MIME body parts parsed",
		},
	)

	MimeDepthExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mutt_mime_depth_exceeded_total",
			Help: "Number of messages whose MIME nesting hit the depth limit",
		},
	)

	HeaderLinesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mutt_header_lines_total",
			Help: "Total number of unfolded header lines processed",
		},
	)
)

// Encoded-word and charset metrics
var (
	Rfc2047Decodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutt_rfc2047_decodes_total",
			Help: "Total number of RFC 2047 encoded-word decode attempts",
		},
		[]string{"result"},
	)

	Rfc2047Encodes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mutt_rfc2047_encodes_total",
			Help: "Total number of RFC 2047 header encodings performed",
		},
	)

	CharsetConversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutt_charset_conversions_total",
			Help: "Total number of charset conversions",
		},
		[]string{"result"},
	)

	CharsetFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mutt_charset_fallbacks_total",
			Help: "Number of conversions that fell back to substitution characters",
		},
	)
)

// Configuration interpreter metrics
var (
	RcCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutt_rc_commands_total",
			Help: "Total number of rc commands executed",
		},
		[]string{"command", "result"},
	)

	RcSourceFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutt_rc_source_files_total",
			Help: "Total number of rc files sourced",
		},
		[]string{"result"},
	)

	RcParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mutt_rc_parse_errors_total",
			Help: "Total number of rc parse errors recorded",
		},
	)
)

// Object storage metrics
var (
	S3OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutt_s3_operations_total",
			Help: "Total number of S3 operations",
		},
		[]string{"operation", "status"},
	)

	S3OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mutt_s3_operation_duration_seconds",
			Help:    "Duration of S3 operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StorageOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutt_storage_operation_errors_total",
			Help: "Storage operation errors by category",
		},
		[]string{"operation", "category"},
	)
)

// Rendering metrics
var (
	ExpandoRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutt_expando_renders_total",
			Help: "Total number of expando template renders",
		},
		[]string{"domain"},
	)

	EnrichedRenders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mutt_enriched_renders_total",
			Help: "Total number of text/enriched bodies rendered",
		},
	)
)
