package pattern

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// DefaultMaxIterations bounds the refinement loop. Plain k-means over 8-bit
// colors practically always settles long before this.
const DefaultMaxIterations = 100

// Init selects how the initial centroids are picked.
type Init string

const (
	// InitRandom picks k pixels uniformly at random, with replacement.
	// Two centroids may start out identical.
	InitRandom Init = "random"

	// InitPlusPlus uses k-means++: every further centroid is picked with
	// probability proportional to its squared distance from the nearest
	// centroid picked so far.
	InitPlusPlus Init = "plusplus"
)

// ParseInit converts a flag value into an Init.
func ParseInit(s string) (Init, error) {
	switch Init(s) {
	case InitRandom, "":
		return InitRandom, nil
	case InitPlusPlus, "kmeans++", "pp":
		return InitPlusPlus, nil
	}
	return "", fmt.Errorf("%w: unknown init method '%s'", ErrInvalidParameter, s)
}

// Quantizer reduces the colors of a pixel buffer to a palette using k-means
// clustering in RGB space.
//
// The zero value is usable: random seeding from the clock, a cap of
// DefaultMaxIterations, one worker per CPU, and no logging.
type Quantizer struct {
	// Rand is the source of randomness used for seeding. Set it to get
	// reproducible palettes.
	Rand *rand.Rand

	Init Init

	// MaxIterations caps the assignment/update rounds. Zero means
	// DefaultMaxIterations.
	MaxIterations int

	// Workers is the number of goroutines used in the assignment step.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int

	Logger hclog.Logger
}

// Result is the outcome of one quantization run.
type Result struct {
	// Palette holds exactly k colors, in seeding order.
	Palette Palette

	// Counts is the number of pixels assigned to each palette entry in the
	// final assignment step. An entry can own zero pixels when k exceeds
	// the number of distinct colors.
	Counts []int

	Iterations int

	// Converged is false when MaxIterations was reached before the
	// centroids stopped moving. The palette is still usable.
	Converged bool
}

// Quantize clusters the RGBA pixels in pix into k colors. Alpha is ignored.
//
// ctx is checked once per iteration. When it is done, Quantize returns its
// error and no palette.
func (q *Quantizer) Quantize(ctx context.Context, pix []uint8, k int) (*Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: palette size must be positive, got %d", ErrInvalidParameter, k)
	}
	if len(pix) == 0 {
		return nil, ErrEmptyInput
	}
	if len(pix)%4 != 0 {
		return nil, fmt.Errorf("%w: buffer length %d is not a multiple of 4", ErrInvalidParameter, len(pix))
	}

	logger := q.logger()
	points := extractPoints(pix)
	centroids := q.seed(points, k)
	logger.Debug("seeded centroids", "init", q.initMethod(), "k", k, "points", len(points))

	maxIter := q.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	r := newRefiner(points, k, q.workers())
	res := &Result{}
	for res.Iterations < maxIter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Iterations++
		changed := r.step(centroids)
		logger.Trace("iteration", "n", res.Iterations, "changed", changed)
		if changed == 0 {
			res.Converged = true
			break
		}
	}
	if !res.Converged {
		logger.Warn("k-means did not converge, using current centroids", "iterations", res.Iterations)
	}

	res.Palette = Palette(centroids)
	res.Counts = append([]int(nil), r.counts...)
	return res, nil
}

func (q *Quantizer) logger() hclog.Logger {
	if q.Logger == nil {
		return hclog.NewNullLogger()
	}
	return q.Logger
}

func (q *Quantizer) workers() int {
	if q.Workers > 0 {
		return q.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (q *Quantizer) initMethod() Init {
	if q.Init == "" {
		return InitRandom
	}
	return q.Init
}

func (q *Quantizer) rng() *rand.Rand {
	if q.Rand == nil {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return q.Rand
}

// extractPoints returns one color per pixel, in pixel order.
func extractPoints(pix []uint8) []RGB {
	points := make([]RGB, len(pix)/4)
	for i := range points {
		points[i] = RGB{pix[i*4], pix[i*4+1], pix[i*4+2]}
	}
	return points
}

func (q *Quantizer) seed(points []RGB, k int) []RGB {
	rng := q.rng()
	if q.initMethod() == InitPlusPlus {
		return seedPlusPlus(points, k, rng)
	}
	return seedRandom(points, k, rng)
}

func seedRandom(points []RGB, k int, rng *rand.Rand) []RGB {
	centroids := make([]RGB, k)
	for i := range centroids {
		centroids[i] = points[rng.Intn(len(points))]
	}
	return centroids
}

func seedPlusPlus(points []RGB, k int, rng *rand.Rand) []RGB {
	centroids := make([]RGB, 0, k)
	centroids = append(centroids, points[rng.Intn(len(points))])

	// Squared distance from each point to its nearest centroid so far
	dists := make([]int64, len(points))
	for i := range dists {
		dists[i] = math.MaxInt64
	}

	for len(centroids) < k {
		last := centroids[len(centroids)-1]
		var total int64
		for i, p := range points {
			if d := int64(sqDist(p, last)); d < dists[i] {
				dists[i] = d
			}
			total += dists[i]
		}

		if total == 0 {
			// Every point already sits on a centroid
			centroids = append(centroids, points[rng.Intn(len(points))])
			continue
		}

		target := rng.Int63n(total)
		var cumulative int64
		for i, d := range dists {
			cumulative += d
			if cumulative > target {
				centroids = append(centroids, points[i])
				break
			}
		}
	}
	return centroids
}

// refiner runs assignment/update rounds over a fixed set of points.
type refiner struct {
	points []RGB
	k      int
	chunks [][]RGB

	// Per-worker accumulators, reduced after every assignment step
	partials []accumulator
	counts   []int
}

type accumulator struct {
	sums   [][3]int64
	counts []int
}

func newRefiner(points []RGB, k, workers int) *refiner {
	if workers > len(points) {
		workers = len(points)
	}
	if workers < 1 {
		workers = 1
	}
	r := &refiner{
		points:   points,
		k:        k,
		partials: make([]accumulator, workers),
		counts:   make([]int, k),
	}
	size := (len(points) + workers - 1) / workers
	for start := 0; start < len(points); start += size {
		end := min(start+size, len(points))
		r.chunks = append(r.chunks, points[start:end])
	}
	for i := range r.partials {
		r.partials[i] = accumulator{
			sums:   make([][3]int64, k),
			counts: make([]int, k),
		}
	}
	return r
}

// step assigns every point to its nearest centroid, then moves each
// centroid to the rounded mean of its points. Centroids without points stay
// where they are. It returns how many centroids changed color.
func (r *refiner) step(centroids []RGB) int {
	palette := Palette(centroids)

	var wg sync.WaitGroup
	for i, chunk := range r.chunks {
		wg.Add(1)
		go func(acc *accumulator, chunk []RGB) {
			defer wg.Done()
			acc.reset()
			for _, p := range chunk {
				j := palette.Nearest(p)
				acc.sums[j][0] += int64(p.R)
				acc.sums[j][1] += int64(p.G)
				acc.sums[j][2] += int64(p.B)
				acc.counts[j]++
			}
		}(&r.partials[i], chunk)
	}
	wg.Wait()

	changed := 0
	for j := 0; j < r.k; j++ {
		var sum [3]int64
		n := 0
		for _, acc := range r.partials {
			sum[0] += acc.sums[j][0]
			sum[1] += acc.sums[j][1]
			sum[2] += acc.sums[j][2]
			n += acc.counts[j]
		}
		r.counts[j] = n
		if n == 0 {
			continue
		}
		mean := RGB{roundDiv(sum[0], n), roundDiv(sum[1], n), roundDiv(sum[2], n)}
		if mean != centroids[j] {
			centroids[j] = mean
			changed++
		}
	}
	return changed
}

func (a *accumulator) reset() {
	for j := range a.sums {
		a.sums[j] = [3]int64{}
		a.counts[j] = 0
	}
}

// roundDiv returns sum/n rounded half up. sum is a sum of n values in
// [0, 255], so the result is too.
func roundDiv(sum int64, n int) uint8 {
	return uint8((2*sum + int64(n)) / (2 * int64(n)))
}
