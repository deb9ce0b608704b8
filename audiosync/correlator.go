package audiosync

import (
	"errors"
	"sync"

	algofft "github.com/cwbudde/algo-fft"
)

// corrFFTPlan caches the real-FFT plans needed to correlate one pair
// of buffers at a given padded length, the same fast/safe fallback
// shape analysis.getLagFFTPlan uses.
type corrFFTPlan struct {
	mu   sync.Mutex
	n    int
	fast *algofft.FastPlanReal64
	safe *algofft.PlanRealT[float64, complex128]
}

var corrPlanCache sync.Map // map[int]*corrFFTPlan

func getCorrFFTPlan(n int) (*corrFFTPlan, error) {
	if v, ok := corrPlanCache.Load(n); ok {
		return v.(*corrFFTPlan), nil
	}

	p := &corrFFTPlan{n: n}

	fast, err := algofft.NewFastPlanReal64(n)
	if err == nil {
		p.fast = fast
	} else if !errors.Is(err, algofft.ErrNotImplemented) {
		// Ignore fast-plan setup errors and rely on the safe plan.
	}

	safe, err := algofft.NewPlanReal64(n)
	if err != nil {
		if p.fast == nil {
			return nil, err
		}
	} else {
		p.safe = safe
	}

	actual, _ := corrPlanCache.LoadOrStore(n, p)
	return actual.(*corrFFTPlan), nil
}

func (p *corrFFTPlan) forward(dst []complex128, src []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fast != nil {
		p.fast.Forward(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Forward(dst, src)
	}
	return errors.New("audiosync: missing correlation FFT forward plan")
}

func (p *corrFFTPlan) inverse(dst []float64, src []complex128) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fast != nil {
		p.fast.Inverse(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Inverse(dst, src)
	}
	return errors.New("audiosync: missing correlation FFT inverse plan")
}

// computeDelay finds the integer-sample delay of target relative to
// reference by FFT cross-correlation, plus a peak/mean confidence
// scalar. Positive delay means target lags reference.
//
// An empty reference or target returns (0, 0).
func computeDelay(reference, target []float32, sr int, maxOffsetS *float64) (int64, float64) {
	if len(reference) == 0 || len(target) == 0 {
		return 0, 0.0
	}

	refNorm := peakNormalize(reference)
	tgtNorm := peakNormalize(target)

	corr, ok := fftCorrelate(refNorm, tgtNorm)
	if !ok {
		return 0, 0.0
	}

	n := len(corr)
	center := len(target) - 1

	lo, hi := 0, n
	if maxOffsetS != nil {
		maxSamples := int(*maxOffsetS * float64(sr))
		lo = center - maxSamples
		if lo < 0 {
			lo = 0
		}
		hi = center + maxSamples + 1
		if hi > n {
			hi = n
		}
	}

	peakIdx := lo
	peakAbs := float32(0)
	for i := lo; i < hi; i++ {
		a := absF32(corr[i])
		if a > peakAbs {
			peakAbs = a
			peakIdx = i
		}
	}

	delaySamples := int64(peakIdx) - int64(len(target)-1)

	var sum float64
	for _, v := range corr {
		sum += float64(absF32(v))
	}
	meanCorr := sum / float64(len(corr))
	confidence := float64(absF32(corr[peakIdx])) / (meanCorr + 1e-10)

	return delaySamples, confidence
}

// fftCorrelate computes the full cross-correlation of reference with
// target — equivalent to fftconvolve(reference, reverse(target),
// "full") — via padded real FFTs. The result has length
// len(reference)+len(target)-1.
func fftCorrelate(reference, target []float32) ([]float32, bool) {
	n := len(reference) + len(target) - 1
	fftLen := nextPow2(n)
	if fftLen < 2 {
		fftLen = 2
	}

	plan, err := getCorrFFTPlan(fftLen)
	if err != nil {
		return nil, false
	}

	refPad := make([]float64, fftLen)
	for i, v := range reference {
		refPad[i] = float64(v)
	}

	tgtPad := make([]float64, fftLen)
	for i, v := range target {
		tgtPad[len(target)-1-i] = float64(v)
	}

	bins := fftLen/2 + 1
	refSpec := make([]complex128, bins)
	tgtSpec := make([]complex128, bins)

	if err := plan.forward(refSpec, refPad); err != nil {
		return nil, false
	}
	if err := plan.forward(tgtSpec, tgtPad); err != nil {
		return nil, false
	}
	for i := range refSpec {
		refSpec[i] *= tgtSpec[i]
	}

	full := make([]float64, fftLen)
	if err := plan.inverse(full, refSpec); err != nil {
		return nil, false
	}

	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(full[i])
	}
	return out, true
}

func peakNormalize(x []float32) []float32 {
	maxAbs := float32(0)
	for _, v := range x {
		if a := absF32(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs <= 1e-10 {
		out := make([]float32, len(x))
		copy(out, x)
		return out
	}
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = v / maxAbs
	}
	return out
}

func absF32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
