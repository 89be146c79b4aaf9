package loadgen

import (
	"errors"
	"fmt"
	"sort"
)

// tally folds attempt results into the run statistics.
func tally(results []Result, stats *Stats) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			stats.AttemptsFailed++
		case r.Status == StatusAccepted:
			stats.Accepted++
			if r.Parked {
				stats.Parked++
			}
		case r.Status == StatusSuppressed:
			stats.Suppressed++
		case r.Status == StatusUnmatched:
			stats.Unmatched++
		}
	}
}

// verifyResults checks that every login matched its own student, that each
// student was accepted exactly once, and that the persisted log grew by the
// number of delivered acceptances.
func verifyResults(results []Result, before, after Totals, stats *Stats) error {
	var errs []error

	accepted := make(map[string]int)
	answered := make(map[string]bool)
	var mismatched []string

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		answered[r.Expected] = true
		switch r.Status {
		case StatusAccepted, StatusSuppressed:
			if r.Matched != r.Expected {
				mismatched = append(mismatched, fmt.Sprintf("%s matched as %s", r.Expected, r.Matched))
			}
			if r.Status == StatusAccepted {
				accepted[r.Matched]++
			}
		}
	}

	if len(mismatched) > 0 {
		sort.Strings(mismatched)
		errs = append(errs, fmt.Errorf("%d logins matched the wrong student, first: %s", len(mismatched), mismatched[0]))
	}

	if stats.Unmatched > 0 {
		errs = append(errs, fmt.Errorf("%d logins went unmatched", stats.Unmatched))
	}

	var duplicated, missing []string
	for id := range answered {
		switch n := accepted[id]; {
		case n > 1:
			duplicated = append(duplicated, fmt.Sprintf("%s accepted %d times", id, n))
		case n == 0:
			missing = append(missing, id)
		}
	}
	if len(duplicated) > 0 {
		sort.Strings(duplicated)
		errs = append(errs, fmt.Errorf("%d students accepted more than once, first: %s", len(duplicated), duplicated[0]))
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		errs = append(errs, fmt.Errorf("%d students were never accepted, first: %s", len(missing), missing[0]))
	}

	if got, want := after.TotalStudents-before.TotalStudents, int64(stats.StudentsEnrolled); got != want {
		errs = append(errs, fmt.Errorf("student total grew by %d, enrolled %d", got, want))
	}
	if got, want := after.TotalLogs-before.TotalLogs, int64(stats.Accepted-stats.Parked); got != want {
		errs = append(errs, fmt.Errorf("attendance log grew by %d, delivered %d", got, want))
	}

	return errors.Join(errs...)
}
