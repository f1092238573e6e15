package renderer

import (
	"log"
	"sync"

	"github.com/yangguang01/vibesub/internal/subtitle"
)

// Session binds a renderer to the video currently on the page. Moving to a
// different video stops the renderer and drops the previous cues.
type Session struct {
	mu      sync.Mutex
	r       *Renderer
	videoID string
}

func NewSession(r *Renderer) *Session {
	return &Session{r: r}
}

// Navigate records that the page now shows videoID. It reports whether
// the video changed.
func (s *Session) Navigate(videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if videoID == s.videoID {
		return false
	}
	if s.r.Running() {
		log.Printf("[renderer] video changed from %q to %q, stopping", s.videoID, videoID)
		s.r.Stop()
	}
	s.videoID = videoID
	return true
}

// Load navigates to videoID and starts rendering cues on overlay.
func (s *Session) Load(videoID string, video Video, overlay Overlay, cues []subtitle.Cue) error {
	s.Navigate(videoID)
	return s.r.Start(video, overlay, cues)
}

// VideoID returns the video the session is bound to.
func (s *Session) VideoID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoID
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Stop()
	s.videoID = ""
}
