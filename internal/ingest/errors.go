package ingest

import "fmt"

// MalformedRecordError marks a single feed record that failed validation.
// It is contained at the normalizer boundary: the record is skipped and
// counted, the batch continues.
type MalformedRecordError struct {
	RecordID string
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("malformed record: %s", e.Reason)
	}
	return fmt.Sprintf("malformed record %s: %s", e.RecordID, e.Reason)
}

// FeedError wraps a transport, HTTP, or decode failure against the
// external feed. Recoverable: the last-good snapshot is retained.
type FeedError struct {
	URL string
	Err error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed unreachable (%s): %v", e.URL, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }
