package download

import "fmt"

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

func (l ProgressLevel) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ProgressEvent represents a sync progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel

	// ItemID is set for messages about a single item.
	ItemID string
}

// TransferEvent reports byte progress of the current download.
type TransferEvent struct {
	// Index is the 1-based position of the item in the batch of Total.
	Index int
	Total int

	Name string

	Written int64
	// Size is -1 when the server sends no length.
	Size int64
}

// Label returns the "i/n" position of the transfer.
func (e TransferEvent) Label() string {
	return fmt.Sprintf("%d/%d", e.Index, e.Total)
}

// Progress is a snapshot of the run, safe to read from another goroutine.
type Progress struct {
	ItemsDone  int
	ItemsTotal int

	Current      string
	BytesWritten int64
	BytesTotal   int64
}

// Failure is one item that did not complete.
type Failure struct {
	ID   string
	Name string
	Err  error
}

// Summary counts the outcome of a run.
type Summary struct {
	// Listed is the number of items returned by the catalog that passed the
	// visibility filter.
	Listed int

	// Hidden is the number of items dropped by the visibility filter.
	Hidden int

	// Malformed items were skipped during normalization.
	Malformed int

	// Skipped items were already on disk or in the ledger.
	Skipped int

	// Downloaded items were fetched, tagged and recorded.
	Downloaded int

	// Pending items would have been downloaded in a dry run.
	Pending int

	// Failed items will be retried on the next run.
	Failed   int
	Failures []Failure
}
