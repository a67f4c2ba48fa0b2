package pipeline

// Defaults used when a Job leaves a field empty.
const (
	DefaultOutputDir = "out/sql"
	DefaultBatchSize = 50
)

type kindDefaults struct {
	source     string
	prefix     string
	headerRows int
}

// Fixed source paths of the spreadsheet exports, relative to the working
// directory the tools are run from.
var defaultsByKind = map[ImportKind]kindDefaults{
	KindFinanceLedger: {source: "data/laporan-keuangan.txt", prefix: "finance", headerRows: 0},
	KindFinanceCSV:    {source: "data/keuangan.csv", prefix: "finance", headerRows: 1},
	KindEvents:        {source: "data/events.csv", prefix: "events", headerRows: 1},
	KindAttendance:    {source: "data/absensi.csv", prefix: "attendance", headerRows: 1},
	KindDues:          {source: "data/kas.csv", prefix: "dues", headerRows: 1},
}

// DefaultSource is the fixed input path for kind.
func DefaultSource(kind ImportKind) string { return defaultsByKind[kind].source }

// DefaultPrefix is the batch file prefix for kind.
func DefaultPrefix(kind ImportKind) string { return defaultsByKind[kind].prefix }

// DefaultHeaderRows is the number of heading rows the export of kind has.
func DefaultHeaderRows(kind ImportKind) int { return defaultsByKind[kind].headerRows }
