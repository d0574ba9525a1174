package prefs

import (
	"context"

	goversion "github.com/hashicorp/go-version"
)

// RecordInstalledVersion stores the running binary's version and logs how
// it compares to the previously recorded one. First run, upgrade, and
// downgrade each get a distinct log line; nothing else keys off the stored
// value.
func (s *Store) RecordInstalledVersion(ctx context.Context, current string) error {
	prev := s.Get(ctx, KeyInstalledVersion, "")
	if prev == current {
		return nil
	}

	if err := s.Set(ctx, KeyInstalledVersion, current); err != nil {
		return err
	}

	if prev == "" {
		s.logger.Info("prefs: first install", "version", current)
		return nil
	}

	pv, errPrev := goversion.NewVersion(prev)
	cv, errCur := goversion.NewVersion(current)
	if errPrev != nil || errCur != nil {
		s.logger.Info("prefs: version changed", "from", prev, "to", current)
		return nil
	}
	switch {
	case cv.GreaterThan(pv):
		s.logger.Info("prefs: upgraded", "from", prev, "to", current)
	case cv.LessThan(pv):
		s.logger.Warn("prefs: downgraded", "from", prev, "to", current)
	}
	return nil
}
