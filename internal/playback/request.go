package playback

// Forever repeats a request until it is skipped or stopped.
const Forever = -1

type Request struct {
	Track Track
	// RepeatCount is the number of plays left, including the current one.
	RepeatCount int
	Submitter   string
}

// NewRequest normalizes repeatCount: 0 and anything below Forever mean one play.
func NewRequest(track Track, repeatCount int, submitter string) Request {
	if repeatCount == 0 || repeatCount < Forever {
		repeatCount = 1
	}
	return Request{Track: track, RepeatCount: repeatCount, Submitter: submitter}
}

// again returns the request to re-queue after a completed play.
func (r Request) again(repeating bool) (Request, bool) {
	switch {
	case r.RepeatCount == Forever || repeating:
		return r, true
	case r.RepeatCount > 1:
		r.RepeatCount--
		return r, true
	default:
		return Request{}, false
	}
}

// Entry is a request as reported in a Status snapshot.
type Entry struct {
	SoundID     string `json:"soundId"`
	DisplayName string `json:"displayName"`
	RepeatCount int    `json:"repeatCount"`
	Submitter   string `json:"submitter"`
}

func (r Request) entry() Entry {
	return Entry{
		SoundID:     r.Track.SoundID(),
		DisplayName: r.Track.DisplayName(),
		RepeatCount: r.RepeatCount,
		Submitter:   r.Submitter,
	}
}
