package editor

import "context"

// ToggleFeatured flips is_featured on the server. Nothing local changes
// until the reload that follows; both project views read the same list.
func (s *Session) ToggleFeatured(ctx context.Context, projectID int64) error {
	if !s.loading.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.loading.Store(false)
	err := s.gateway.ToggleFeatured(ctx, projectID)
	s.record(err)
	return err
}
