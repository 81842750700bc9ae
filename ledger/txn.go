package ledger

import (
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/storage"
)

// Store is the durable ledger contract used by the validator, cementer,
// schedulers and RPC layer. A Store is opened once per node; individual
// operations go through a ReadTxn or WriteTxn (§4.D).
type Store struct {
	db storage.DB
}

// NewStore wraps a storage.DB (normally a *storage.LevelDB) as a ledger
// Store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// TxBeginRead starts a read-only view directly against the underlying DB.
// Unlike WriteTxn it has no write buffer: reads always see the latest
// committed state, mirroring how the write queue guarantees at most one
// writer is ever active.
func (s *Store) TxBeginRead() *ReadTxn {
	return &ReadTxn{db: s.db}
}

// TxBeginWrite starts a buffered write transaction. Nothing is visible to
// other readers until Commit flushes the buffer through a storage.Batch.
func (s *Store) TxBeginWrite() *WriteTxn {
	return &WriteTxn{
		db:      s.db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ReadTxn is a read-only view over the store.
type ReadTxn struct {
	db storage.DB
}

func (t *ReadTxn) GetBlock(h core.BlockHash) (core.StoredBlock, error) {
	data, err := t.db.Get(blockKey(h))
	if err != nil {
		return core.StoredBlock{}, err
	}
	return decodeStoredBlock(data)
}

// BlockExistsOrPruned reports whether h is present as a full block or has
// been pruned (its content discarded but its existence remembered), the
// distinction the validator needs to accept a successor without being
// able to re-examine its now-discarded ancestor.
func (t *ReadTxn) BlockExistsOrPruned(h core.BlockHash) bool {
	if _, err := t.db.Get(blockKey(h)); err == nil {
		return true
	}
	if _, err := t.db.Get(prunedKey(h)); err == nil {
		return true
	}
	return false
}

func (t *ReadTxn) GetAccountInfo(a core.Account) (core.AccountInfo, error) {
	data, err := t.db.Get(accountKey(a))
	if err != nil {
		return core.AccountInfo{}, err
	}
	return decodeAccountInfo(data)
}

func (t *ReadTxn) GetPending(k core.PendingKey) (core.PendingInfo, error) {
	data, err := t.db.Get(pendingKey(k))
	if err != nil {
		return core.PendingInfo{}, err
	}
	return decodePendingInfo(data)
}

// PendingForAccount enumerates every receivable owed to a, in source-hash
// order.
func (t *ReadTxn) PendingForAccount(a core.Account) ([]core.PendingKey, []core.PendingInfo, error) {
	it := t.db.NewIterator(pendingPrefix(a))
	defer it.Release()

	var keys []core.PendingKey
	var infos []core.PendingInfo
	for it.Next() {
		key := it.Key()
		var pk core.PendingKey
		copy(pk.Account[:], key[1:33])
		copy(pk.Hash[:], key[33:65])
		info, err := decodePendingInfo(it.Value())
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, pk)
		infos = append(infos, info)
	}
	return keys, infos, it.Error()
}

func (t *ReadTxn) GetConfirmationHeight(a core.Account) (core.ConfirmationHeightInfo, error) {
	data, err := t.db.Get(confirmationHeightKey(a))
	if err != nil {
		if err == core.ErrNotFound {
			return core.ConfirmationHeightInfo{}, nil
		}
		return core.ConfirmationHeightInfo{}, err
	}
	return decodeConfirmationHeight(data)
}

// WriteTxn buffers writes in memory (the teacher's dirty/deleted overlay
// pattern from storage.StateDB) and flushes them atomically through a
// storage.Batch on Commit.
type WriteTxn struct {
	db      storage.DB
	dirty   map[string][]byte
	deleted map[string]bool

	writes int
}

func (t *WriteTxn) get(key []byte) ([]byte, error) {
	k := string(key)
	if t.deleted[k] {
		return nil, core.ErrNotFound
	}
	if v, ok := t.dirty[k]; ok {
		return v, nil
	}
	return t.db.Get(key)
}

func (t *WriteTxn) set(key []byte, val []byte) {
	k := string(key)
	delete(t.deleted, k)
	t.dirty[k] = val
	t.writes++
}

func (t *WriteTxn) del(key []byte) {
	k := string(key)
	delete(t.dirty, k)
	t.deleted[k] = true
	t.writes++
}

func (t *WriteTxn) GetBlock(h core.BlockHash) (core.StoredBlock, error) {
	data, err := t.get(blockKey(h))
	if err != nil {
		return core.StoredBlock{}, err
	}
	return decodeStoredBlock(data)
}

func (t *WriteTxn) BlockExistsOrPruned(h core.BlockHash) bool {
	if _, err := t.get(blockKey(h)); err == nil {
		return true
	}
	if _, err := t.get(prunedKey(h)); err == nil {
		return true
	}
	return false
}

func (t *WriteTxn) PutBlock(sb core.StoredBlock) error {
	data, err := encodeStoredBlock(sb)
	if err != nil {
		return err
	}
	t.set(blockKey(sb.Block.Hash()), data)
	return nil
}

func (t *WriteTxn) DelBlock(h core.BlockHash) {
	t.del(blockKey(h))
}

// SetSuccessor back-patches the successor field of the block at h, called
// once the next block in the chain is known.
func (t *WriteTxn) SetSuccessor(h core.BlockHash, successor core.BlockHash) error {
	stored, err := t.GetBlock(h)
	if err != nil {
		return err
	}
	stored.Sideband.Successor = successor
	return t.PutBlock(stored)
}

func (t *WriteTxn) GetAccountInfo(a core.Account) (core.AccountInfo, error) {
	data, err := t.get(accountKey(a))
	if err != nil {
		return core.AccountInfo{}, err
	}
	return decodeAccountInfo(data)
}

func (t *WriteTxn) PutAccountInfo(a core.Account, info core.AccountInfo) error {
	data, err := encodeAccountInfo(info)
	if err != nil {
		return err
	}
	t.set(accountKey(a), data)
	return nil
}

func (t *WriteTxn) DelAccountInfo(a core.Account) {
	t.del(accountKey(a))
}

func (t *WriteTxn) GetPending(k core.PendingKey) (core.PendingInfo, error) {
	data, err := t.get(pendingKey(k))
	if err != nil {
		return core.PendingInfo{}, err
	}
	return decodePendingInfo(data)
}

func (t *WriteTxn) PutPending(k core.PendingKey, info core.PendingInfo) error {
	data, err := encodePendingInfo(info)
	if err != nil {
		return err
	}
	t.set(pendingKey(k), data)
	return nil
}

func (t *WriteTxn) DelPending(k core.PendingKey) {
	t.del(pendingKey(k))
}

func (t *WriteTxn) GetConfirmationHeight(a core.Account) (core.ConfirmationHeightInfo, error) {
	data, err := t.get(confirmationHeightKey(a))
	if err != nil {
		if err == core.ErrNotFound {
			return core.ConfirmationHeightInfo{}, nil
		}
		return core.ConfirmationHeightInfo{}, err
	}
	return decodeConfirmationHeight(data)
}

func (t *WriteTxn) PutConfirmationHeight(a core.Account, info core.ConfirmationHeightInfo) error {
	data, err := encodeConfirmationHeight(info)
	if err != nil {
		return err
	}
	t.set(confirmationHeightKey(a), data)
	return nil
}

// refreshThreshold bounds how many buffered writes a long-running
// cementing pass accumulates before it is forced to flush, so a single
// large confirmation doesn't hold an unbounded amount of memory or starve
// the write queue's other waiters.
const refreshThreshold = 4096

// RefreshIfNeeded commits and reopens the write buffer once it has grown
// past refreshThreshold, letting a long DFS confirmation pass make
// incremental progress durable.
func (t *WriteTxn) RefreshIfNeeded() error {
	if t.writes < refreshThreshold {
		return nil
	}
	return t.Commit()
}

// Commit flushes the write buffer through one storage.Batch and resets it.
func (t *WriteTxn) Commit() error {
	batch := t.db.NewBatch()
	for k, v := range t.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range t.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	t.dirty = make(map[string][]byte)
	t.deleted = make(map[string]bool)
	t.writes = 0
	return nil
}
