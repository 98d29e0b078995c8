package estimator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/housepipe/internal/domain"
)

// linearModel is ordinary least squares with an intercept.
type linearModel struct {
	coef      []float64
	intercept float64
}

// fitLinear centers x and y, then solves the least squares problem through a
// thin SVD. Singular values below eps*max(n,p)*s_max are dropped, giving the
// minimum-norm solution on rank-deficient data.
func fitLinear(x *mat.Dense, y []float64) (linearModel, error) {
	if x == nil {
		return linearModel{}, fmt.Errorf("fit on zero rows: %w", domain.ErrEmptyInput)
	}
	n, p := x.Dims()
	if len(y) != n {
		return linearModel{}, fmt.Errorf("%d labels for %d rows: %w", len(y), n, domain.ErrInvalidInput)
	}

	xMean := make([]float64, p)
	for j := 0; j < p; j++ {
		xMean[j] = mean(mat.Col(nil, j, x))
	}
	yMean := mean(y)

	xc := mat.NewDense(n, p, nil)
	xc.Apply(func(_, j int, v float64) float64 { return v - xMean[j] }, x)
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - yMean
	}

	var svd mat.SVD
	if ok := svd.Factorize(xc, mat.SVDThin); !ok {
		return linearModel{}, errors.New("least squares: SVD did not converge")
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	coef := make([]float64, p)
	if len(s) > 0 {
		tol := math.Nextafter(1, 2) - 1
		tol *= float64(max(n, p)) * s[0]
		for k, sk := range s {
			if sk <= tol {
				continue
			}
			var dot float64
			for i := 0; i < n; i++ {
				dot += u.At(i, k) * yc[i]
			}
			alpha := dot / sk
			for j := 0; j < p; j++ {
				coef[j] += v.At(j, k) * alpha
			}
		}
	}

	return linearModel{coef: coef, intercept: yMean - floats.Dot(xMean, coef)}, nil
}

func (m linearModel) predict(x *mat.Dense) []float64 {
	if x == nil {
		return []float64{}
	}
	n, _ := x.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = floats.Dot(x.RawRowView(i), m.coef) + m.intercept
	}
	return out
}
