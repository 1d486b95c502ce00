package genome

import "fmt"

// DistanceMethod selects how Distance is reported.
type DistanceMethod string

const (
	// DistanceAbsolute counts differing loci.
	DistanceAbsolute DistanceMethod = "absolute"
	// DistanceRelative divides the absolute distance by the genome length.
	DistanceRelative DistanceMethod = "relative"
)

// Distance is the Hamming distance between g and other.
func (g *Genome) Distance(other *Genome, method DistanceMethod) (float64, error) {
	if err := g.sameLength(other, "distance"); err != nil {
		return 0, err
	}

	differences := float64(g.bits.SymmetricDifferenceCardinality(other.bits))
	switch method {
	case DistanceAbsolute:
		return differences, nil
	case DistanceRelative, "":
		if g.length == 0 {
			return 0, nil
		}
		return differences / float64(g.length), nil
	default:
		return 0, fmt.Errorf("%w: distance method %q not valid", ErrInvalidArgument, method)
	}
}
