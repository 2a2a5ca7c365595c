package xcm

// Weight expresses the execution cost of a message or instruction in two
// dimensions: computation time and proof (state-witness) size. It is an
// abstract unit used for admission control and fee calculation, not
// wall-clock time.
type Weight struct {
	// RefTime is the computational cost, in picoseconds of reference
	// hardware time.
	RefTime uint64

	// ProofSize is the state proof cost, in bytes.
	ProofSize uint64
}

// NewWeight creates a weight from its two parts.
func NewWeight(refTime, proofSize uint64) Weight {
	return Weight{RefTime: refTime, ProofSize: proofSize}
}

// WeightZero returns the zero weight.
func WeightZero() Weight {
	return Weight{}
}

// IsZero returns true if both components are zero.
func (w Weight) IsZero() bool {
	return w.RefTime == 0 && w.ProofSize == 0
}

// Add returns the component-wise saturating sum of w and other.
func (w Weight) Add(other Weight) Weight {
	return Weight{
		RefTime:   saturatingAdd(w.RefTime, other.RefTime),
		ProofSize: saturatingAdd(w.ProofSize, other.ProofSize),
	}
}

// Sub returns the component-wise saturating difference of w and other.
func (w Weight) Sub(other Weight) Weight {
	return Weight{
		RefTime:   saturatingSub(w.RefTime, other.RefTime),
		ProofSize: saturatingSub(w.ProofSize, other.ProofSize),
	}
}

// Mul returns w scaled by n, saturating on overflow.
func (w Weight) Mul(n uint64) Weight {
	return Weight{
		RefTime:   saturatingMul(w.RefTime, n),
		ProofSize: saturatingMul(w.ProofSize, n),
	}
}

// AnyGreater returns true if any component of w exceeds the corresponding
// component of other.
func (w Weight) AnyGreater(other Weight) bool {
	return w.RefTime > other.RefTime || w.ProofSize > other.ProofSize
}

// AllLessOrEqual returns true if every component of w is at most the
// corresponding component of other.
func (w Weight) AllLessOrEqual(other Weight) bool {
	return w.RefTime <= other.RefTime && w.ProofSize <= other.ProofSize
}

// Max returns the component-wise maximum of w and other.
func (w Weight) Max(other Weight) Weight {
	out := w
	if other.RefTime > out.RefTime {
		out.RefTime = other.RefTime
	}
	if other.ProofSize > out.ProofSize {
		out.ProofSize = other.ProofSize
	}
	return out
}

// WeightLimit bounds how much weight a payer is willing to purchase.
// The zero value is Unlimited.
type WeightLimit struct {
	// Limited is true when an explicit bound applies.
	Limited bool

	// Weight is the bound; meaningful only when Limited.
	Weight Weight
}

// Unlimited returns an unbounded weight limit.
func Unlimited() WeightLimit {
	return WeightLimit{}
}

// Limited returns a weight limit bounded by w.
func Limited(w Weight) WeightLimit {
	return WeightLimit{Limited: true, Weight: w}
}

func saturatingAdd(a, b uint64) uint64 {
	if a+b < a {
		return ^uint64(0)
	}
	return a + b
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a*b/a != b {
		return ^uint64(0)
	}
	return a * b
}
