package combat

import "go.uber.org/zap"

// Presenter receives fire-and-forget cues for animation, audio, VFX, camera
// and HUD collaborators. Implementations must not call back into the actor.
type Presenter interface {
	Play(actorID, cue string)
}

// LogPresenter writes every cue to a logger at debug level.
type LogPresenter struct {
	Logger *zap.Logger
}

// Play logs the cue.
func (p LogPresenter) Play(actorID, cue string) {
	if p.Logger == nil {
		return
	}
	p.Logger.Debug("cue", zap.String("actor", actorID), zap.String("cue", cue))
}

// NopPresenter discards cues.
type NopPresenter struct{}

// Play does nothing.
func (NopPresenter) Play(string, string) {}
