package service

import (
	"sort"
	"strings"

	"github.com/layer-3/dealguard/core"
	"github.com/shopspring/decimal"
)

// Filter narrows the transaction history. Empty fields match everything.
type Filter struct {
	Role   core.Role
	Status core.Status
	Search string
}

// Stats summarises the published transactions
type Stats struct {
	TotalLocked    string `json:"totalLocked"`
	ActiveDeals    int    `json:"activeDeals"`
	CompletedDeals int    `json:"completedDeals"`
}

// History returns both lists filtered and sorted newest first
func History(snap core.Snapshot, f Filter) []core.Transaction {
	all := snap.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp > all[j].Timestamp
	})

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]core.Transaction, 0, len(all))
	for _, tx := range all {
		if f.Role != "" && tx.Role != f.Role {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(tx.ShortID), search) &&
			!strings.Contains(strings.ToLower(tx.FullID), search) &&
			!strings.Contains(strings.ToLower(tx.Counterparty), search) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// ComputeStats totals the amounts over both lists. Sample records are not
// counted.
func ComputeStats(snap core.Snapshot) Stats {
	total := decimal.Zero
	var active, completed int
	for _, tx := range snap.All() {
		if tx.Sample {
			continue
		}
		total = total.Add(core.ParseSUI(tx.Amount))
		if tx.Status == core.StatusCompleted {
			completed++
		} else {
			active++
		}
	}

	return Stats{
		TotalLocked:    total.String(),
		ActiveDeals:    active,
		CompletedDeals: completed,
	}
}
