package usecase

import (
	"context"
)

// EnrollCancel abandons an in-flight enrollment. The unverified factor and
// its secret live only in the client, so dropping the lock is all there is
// to clean up.
func (s *Usecase) EnrollCancel(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "EnrollCancel")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return err
	}

	s.releaseEnrollLock(ctx, clm.UserID())
	return nil
}
