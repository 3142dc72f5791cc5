package index

import "fmt"

// IndexInconsistencyError reports a per-file or master index record that
// failed to decode (wrong size, truncated tail). The reader discards the
// record and continues the scan rather than failing the query (§7).
type IndexInconsistencyError struct {
	Path   string
	Detail string
}

func (e *IndexInconsistencyError) Error() string {
	return fmt.Sprintf("index inconsistency in %s: %s", e.Path, e.Detail)
}
