package assembly

import (
	"log"
	"runtime"
	"sync"

	"github.com/notargets/gobilinear/utils"
)

// elementMatrixCache keeps one domain element matrix per element, valid for the
// space generation it was computed at.
type elementMatrixCache struct {
	mats       []utils.Matrix
	generation int
}

// SetParallelDegree sets how many goroutines ComputeElementMatrices uses, the
// number of CPUs when np < 1. Without it element matrices are computed on the
// calling goroutine. With more than one goroutine the domain integrators and
// their Coefficient functions run concurrently and must be safe for that.
func (b *BilinearForm) SetParallelDegree(np int) {
	if np < 1 {
		np = runtime.NumCPU()
	}
	b.parallelDegree = np
}

// ComputeElementMatrices computes and stores every domain element matrix.
// Assemble reuses them until FreeElementMatrices or a space change.
func (b *BilinearForm) ComputeElementMatrices() (err error) {
	var (
		m     = b.fes.GetMesh()
		cache = &elementMatrixCache{
			mats:       make([]utils.Matrix, m.NumElements()),
			generation: b.fes.Generation(),
		}
		NPar = b.parallelDegree
		wg   = sync.WaitGroup{}
	)
	if NPar < 1 {
		NPar = 1
	}
	var (
		pm   = utils.NewPartitionMap(NPar, len(cache.mats))
		errs = make([]error, NPar)
	)
	if NPar == 1 {
		errs[0] = b.computeElementRange(cache, 0, len(cache.mats))
	} else {
		for np := 0; np < NPar; np++ {
			wg.Add(1)
			go func(np int) {
				defer wg.Done()
				kMin, kMax := pm.GetBucketRange(np)
				errs[np] = b.computeElementRange(cache, kMin, kMax)
			}(np)
		}
		wg.Wait()
	}
	for _, err = range errs {
		if err != nil {
			return
		}
	}
	b.cache = cache
	if b.verbose {
		log.Printf("bilinear form: cached %d element matrices on %d goroutines, %s",
			len(cache.mats), NPar, utils.GetMemUsage())
	}
	return
}

func (b *BilinearForm) computeElementRange(cache *elementMatrixCache, kMin, kMax int) (err error) {
	var elmat utils.Matrix
	for e := kMin; e < kMax; e++ {
		if elmat, err = b.ComputeElementMatrix(e); err != nil {
			return
		}
		cache.mats[e] = elmat.SetReadOnly("element matrix")
	}
	return
}

func (b *BilinearForm) FreeElementMatrices() { b.cache = nil }

// HasElementMatrices is true while a cache valid for the current space exists.
func (b *BilinearForm) HasElementMatrices() bool {
	return b.cache != nil && b.cache.generation == b.fes.Generation()
}

// ElementMatrix returns the cached matrix of element e, or computes one without
// storing it.
func (b *BilinearForm) ElementMatrix(e int) (elmat utils.Matrix, err error) {
	return b.elementMatrix(e)
}

func (b *BilinearForm) elementMatrix(e int) (elmat utils.Matrix, err error) {
	if b.cache != nil && b.cache.generation != b.fes.Generation() {
		if b.verbose {
			log.Printf("bilinear form: dropping stale element matrices of generation %d", b.cache.generation)
		}
		b.FreeElementMatrices()
	}
	if b.cache != nil {
		elmat = b.cache.mats[e]
		return
	}
	return b.ComputeElementMatrix(e)
}
