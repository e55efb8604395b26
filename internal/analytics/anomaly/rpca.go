package anomaly

import (
	"fmt"
	"math"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RPCADetector decomposes the seasonal matrix of the series into low-rank,
// sparse and noise parts and scores each point by |noise|
type RPCADetector struct{}

func init() {
	RegisterDetector("rpca", &RPCADetector{})
}

// Name returns the algorithm name
func (r *RPCADetector) Name() string {
	return "rpca"
}

// Score implements Detector
func (r *RPCADetector) Score(points []series.Point, config DetectorConfig) (analytics.Scores, error) {
	freq := SeasonFrequency(points, config)
	if freq < 1 {
		return nil, fmt.Errorf("%w: rpca needs a season", ErrInvalidConfig)
	}
	scores := make(analytics.Scores, len(points))
	if len(points) == 0 {
		return scores, nil
	}

	maxIter := config.MaxIterations
	if maxIter <= 0 {
		maxIter = utils.DefaultRPCAMaxIterations
	}

	z := analytics.ZNormalize(analytics.Values(points))
	if allZero(z) {
		for _, p := range points {
			scores[p.Timestamp] = 0
		}
		return scores, nil
	}

	noise := DecomposeRPCA(z, freq, maxIter).Noise
	for i, p := range points {
		scores[p.Timestamp] = math.Abs(noise[i])
	}
	return analytics.NormalizeScores(scores), nil
}

func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

// RPCAResult holds the decomposition flattened back to series order
type RPCAResult struct {
	LowRank    []float64
	Sparse     []float64
	Noise      []float64
	Iterations int
}

// DecomposeRPCA reshapes values column-major into a freq x ceil(n/freq) matrix
// (zero padded) and splits it into X = L + S + E.
func DecomposeRPCA(values []float64, freq, maxIter int) RPCAResult {
	n := len(values)
	rows := freq
	cols := (n + freq - 1) / freq
	x := mat.NewDense(rows, cols, nil)
	for i, v := range values {
		x.Set(i%rows, i/rows, v)
	}

	l := mat.NewDense(rows, cols, nil)
	s := mat.NewDense(rows, cols, nil)
	e := mat.NewDense(rows, cols, nil)

	l1 := l1Norm(x)
	if l1 == 0 {
		return RPCAResult{LowRank: make([]float64, n), Sparse: make([]float64, n), Noise: make([]float64, n)}
	}

	const lPenalty = 1.0
	sPenalty := 1.4 / math.Sqrt(float64(max(rows, cols)))
	mu := float64(rows*cols) / (4 * l1)

	prevObj := 0.5 * frobeniusSq(x)
	tol := 1e-8 * prevObj
	diff := 2 * tol

	iter := 0
	for diff > tol && iter < maxIter {
		// S = shrink(X - L)
		var xl mat.Dense
		xl.Sub(x, l)
		softThresholdInto(s, &xl, sPenalty*mu)

		// L = SVT(X - S)
		var xs mat.Dense
		xs.Sub(x, s)
		nuclear := singularValueThreshold(l, &xs, lPenalty*mu)

		e.Sub(x, l)
		e.Sub(e, s)

		obj := 0.5*frobeniusSq(e) + lPenalty*nuclear + sPenalty*l1Norm(s)
		diff = math.Abs(prevObj - obj)
		prevObj = obj

		mu = dynamicMu(e, rows, cols)
		iter++
	}

	return RPCAResult{
		LowRank:    flatten(l, n),
		Sparse:     flatten(s, n),
		Noise:      flatten(e, n),
		Iterations: iter,
	}
}

func softThreshold(v, t float64) float64 {
	if v > t {
		return v - t
	}
	if v < -t {
		return v + t
	}
	return 0
}

func softThresholdInto(dst *mat.Dense, src mat.Matrix, t float64) {
	r, c := dst.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, j, softThreshold(src.At(i, j), t))
		}
	}
}

// singularValueThreshold writes U*shrink(Sigma)*V^T of src into dst and
// returns the nuclear norm of the result.
func singularValueThreshold(dst *mat.Dense, src mat.Matrix, t float64) float64 {
	var svd mat.SVD
	if !svd.Factorize(src, mat.SVDThin) {
		dst.Zero()
		return 0
	}
	sv := svd.Values(nil)
	nuclear := 0.0
	for i := range sv {
		sv[i] = softThreshold(sv[i], t)
		nuclear += sv[i]
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var us mat.Dense
	us.Mul(&u, mat.NewDiagDense(len(sv), sv))
	dst.Mul(&us, v.T())
	return nuclear
}

func dynamicMu(e *mat.Dense, rows, cols int) float64 {
	sd := stat.StdDev(e.RawMatrix().Data, nil)
	if math.IsNaN(sd) {
		sd = 0
	}
	return math.Max(0.01, sd*math.Sqrt(2*float64(max(rows, cols))))
}

// l1Norm is the entrywise sum of absolute values.
func l1Norm(m *mat.Dense) float64 {
	sum := 0.0
	for _, v := range m.RawMatrix().Data {
		sum += math.Abs(v)
	}
	return sum
}

func frobeniusSq(m *mat.Dense) float64 {
	return floats.Dot(m.RawMatrix().Data, m.RawMatrix().Data)
}

func flatten(m *mat.Dense, n int) []float64 {
	rows, _ := m.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = m.At(i%rows, i/rows)
	}
	return out
}
