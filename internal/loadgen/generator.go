package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/rollcall/pkg/logger"
)

// Sections cycled through when naming synthetic students.
var sections = []string{"A", "B", "C", "D"}

// generateStudents creates students with uniformly random vectors in [-1, 1).
// Random points in a high dimensional cube sit far apart, so each one is its
// own nearest neighbor at any reasonable threshold.
func generateStudents(ctx context.Context, config *Config, r *rand.Rand, stats *Stats) ([]Student, error) {
	logger.Get().Info(ctx, "generating students",
		logger.Int("students", config.Students),
		logger.Int("dimension", config.Dimension))

	students := make([]Student, config.Students)
	for i := range students {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		vec := make([]float64, config.Dimension)
		for j := range vec {
			vec[j] = r.Float64()*2 - 1
		}
		students[i] = Student{
			StudentID: "LG-" + uuid.NewString(),
			Name:      "Load Student " + strconv.Itoa(i+1),
			Section:   sections[i%len(sections)],
			Encoding:  vec,
		}
	}

	stats.StudentsGenerated = len(students)
	return students, nil
}

// generateAttempts builds config.Attempts jittered logins per student in
// shuffled order so that logins for one student race each other.
func generateAttempts(students []Student, config *Config, r *rand.Rand) []Attempt {
	attempts := make([]Attempt, 0, len(students)*config.Attempts)
	for _, s := range students {
		for n := 0; n < config.Attempts; n++ {
			attempts = append(attempts, Attempt{
				StudentID: s.StudentID,
				Request: LoginRequest{
					Encoding: jitter(s.Encoding, config.Noise, r),
					Location: config.Location,
				},
			})
		}
	}
	r.Shuffle(len(attempts), func(i, j int) {
		attempts[i], attempts[j] = attempts[j], attempts[i]
	})
	return attempts
}

// jitter returns a copy of v with each component moved by at most noise.
func jitter(v []float64, noise float64, r *rand.Rand) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x + (r.Float64()*2-1)*noise
	}
	return out
}

// newRand returns the deterministic source used for a run.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
