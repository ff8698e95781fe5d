package hstrings

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/cvet/scriptcore/script_errors"
	"github.com/cvet/scriptcore/utils"
)

const DefaultCacheSize = 4096

// Pool interns hashed strings. Every string made through it can later
// be resolved from its hash alone.
type Pool struct {
	store Store
	cache *lru.Cache[uint64, string]
	log   utils.Logger
}

func NewPool(store Store, cacheSize int, log utils.Logger) *Pool {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if log == nil {
		log = utils.NopLogger{}
	}
	cache, _ := lru.New[uint64, string](cacheSize)
	return &Pool{store: store, cache: cache, log: log}
}

func (p *Pool) Make(s string) (HString, error) {
	h := Of(s)
	if h.IsEmpty() {
		return h, nil
	}
	if text, ok := p.cache.Get(h.hash); ok {
		if text != s {
			return p.collision(h, text)
		}
		return h, nil
	}
	text, ok, err := p.store.Get(h.hash)
	if err != nil {
		return Empty, err
	}
	if ok && text != s {
		return p.collision(h, text)
	}
	if !ok {
		if err = p.store.Put(h.hash, s); err != nil {
			return Empty, err
		}
	}
	p.cache.Add(h.hash, s)
	return h, nil
}

func (p *Pool) collision(h HString, existing string) (HString, error) {
	p.log.Error("hashed string collision", "hash", h.hash, "new", h.text, "existing", existing)
	return Empty, errors.Wrapf(script_errors.ErrHashCollision, "%q vs %q", h.text, existing)
}

func (p *Pool) Resolve(hash uint64) (HString, error) {
	if hash == 0 {
		return Empty, nil
	}
	if text, ok := p.cache.Get(hash); ok {
		return HString{hash: hash, text: text}, nil
	}
	text, ok, err := p.store.Get(hash)
	if err != nil {
		return Empty, err
	}
	if !ok {
		return Empty, errors.Wrapf(script_errors.ErrHashUnknown, "%x", hash)
	}
	p.cache.Add(hash, text)
	return HString{hash: hash, text: text}, nil
}

func (p *Pool) Close() error {
	p.cache.Purge()
	return p.store.Close()
}
