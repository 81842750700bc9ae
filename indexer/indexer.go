// Package indexer maintains secondary lookup tables over ledger events so
// RPC callers can answer queries the primary ledger tables don't serve
// directly — which accounts delegate to a given representative, and
// which accounts hold blocks still awaiting confirmation.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/events"
	"github.com/tolelom/tolchain/storage"
)

const (
	prefixRepDelegators  = "idx:rep:delegators:"
	prefixUnconfirmed    = "idx:unconfirmed:"
)

// Indexer subscribes to ledger events and updates secondary lookup tables.
type Indexer struct {
	db      storage.DB
	emitter *events.Emitter
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, emitter: emitter}
	emitter.Subscribe(events.EventBlockProcessed, idx.onBlockProcessed)
	emitter.Subscribe(events.EventBlockCemented, idx.onBlockCemented)
	return idx
}

// GetDelegators returns every account currently delegating to rep.
func (idx *Indexer) GetDelegators(rep string) ([]string, error) {
	return idx.getList(prefixRepDelegators + rep)
}

// GetUnconfirmed returns every account with a block the indexer has seen
// processed but not yet seen cemented, the worklist a priority or
// optimistic scheduler can use to pick the next election to start.
func (idx *Indexer) GetUnconfirmed() ([]string, error) {
	return idx.getList(prefixUnconfirmed + "all")
}

// ---- event handlers ----

func (idx *Indexer) onBlockProcessed(ev events.Event) {
	account := ev.Account
	if account == "" {
		return
	}
	oldRep, _ := ev.Data["old_representative"].(string)
	newRep, _ := ev.Data["new_representative"].(string)
	if newRep != "" && newRep != oldRep {
		if oldRep != "" {
			if err := idx.removeFromList(prefixRepDelegators+oldRep, account); err != nil {
				log.Printf("[indexer] delegator remove failed (rep=%s account=%s): %v", oldRep, account, err)
			}
		}
		if err := idx.addToList(prefixRepDelegators+newRep, account); err != nil {
			log.Printf("[indexer] delegator add failed (rep=%s account=%s): %v", newRep, account, err)
		}
	}
	if err := idx.addToList(prefixUnconfirmed+"all", account); err != nil {
		log.Printf("[indexer] unconfirmed add failed (account=%s): %v", account, err)
	}
}

func (idx *Indexer) onBlockCemented(ev events.Event) {
	account := ev.Account
	if account == "" {
		return
	}
	if err := idx.removeFromList(prefixUnconfirmed+"all", account); err != nil {
		log.Printf("[indexer] unconfirmed remove failed (account=%s): %v", account, err)
	}
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return fmt.Errorf("read list: %w", err)
	}
	for _, id := range ids {
		if id == value {
			return nil // already present
		}
	}
	ids = append(ids, value)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}

func (idx *Indexer) removeFromList(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return fmt.Errorf("read list: %w", err)
	}
	if ids == nil {
		return nil
	}
	filtered := ids[:0]
	for _, id := range ids {
		if id != value {
			filtered = append(filtered, id)
		}
	}
	data, err := json.Marshal(filtered)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
