// internal/poller/batch.go
package poller

import "github.com/tamzrod/modbus-relay/internal/registers"

// Plan splits a catalog into maximal runs of consecutive addresses.
// The catalog must be strictly ascending. Gaps always start a new batch,
// even when reading across the gap would be cheaper.
func Plan(defs []registers.Def) ([]Batch, error) {
	if err := registers.CheckSorted(defs); err != nil {
		return nil, err
	}

	var batches []Batch
	for i, d := range defs {
		if i == 0 || d.Address != defs[i-1].Address+1 {
			batches = append(batches, Batch{Start: d.Address})
		}
		cur := &batches[len(batches)-1]
		cur.Members = append(cur.Members, d)
		cur.Count++
	}
	return batches, nil
}
