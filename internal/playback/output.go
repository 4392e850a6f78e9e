package playback

import (
	"errors"
	"io"
	"math"
	"sync/atomic"

	"github.com/glizzus/soundboard/internal/opus"
)

type stream struct {
	gen uint64
	pcm opus.PCMReader
}

// output is the guild's frame source. The actor swaps streams in and out;
// the transport pump is the only caller of CanProvide and NextFrame.
type output struct {
	enc    opus.Encoder
	volume atomic.Uint64
	cur    atomic.Pointer[stream]
	// ended is called once per stream that runs out on its own.
	ended func(gen uint64, err error)

	next    []byte
	nextGen uint64
}

var _ opus.FrameSource = (*output)(nil)

func newOutput(enc opus.Encoder, volume float64, ended func(gen uint64, err error)) *output {
	o := &output{enc: enc, ended: ended}
	o.setVolume(volume)
	return o
}

func (o *output) setVolume(v float64) {
	o.volume.Store(math.Float64bits(v))
}

func (o *output) gain() float64 {
	return math.Float64frombits(o.volume.Load())
}

// play replaces whatever is playing with pcm.
func (o *output) play(gen uint64, pcm opus.PCMReader) {
	if prev := o.cur.Swap(&stream{gen: gen, pcm: pcm}); prev != nil {
		prev.pcm.Close()
	}
}

func (o *output) stop() {
	if prev := o.cur.Swap(nil); prev != nil {
		prev.pcm.Close()
	}
}

func (o *output) CanProvide() bool {
	s := o.cur.Load()
	if s == nil {
		o.next = nil
		return false
	}
	if o.next != nil && o.nextGen == s.gen {
		return true
	}

	pcm, err := s.pcm.ReadPCM()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		o.finish(s, err)
		return false
	}

	opus.ApplyGain(pcm, o.gain())
	frame, err := o.enc.Encode(pcm, opus.FrameSize, opus.MaxFrameBytes)
	if err != nil {
		o.finish(s, err)
		return false
	}
	o.next, o.nextGen = frame, s.gen
	return true
}

func (o *output) NextFrame() []byte {
	frame := o.next
	o.next = nil
	return frame
}

// finish retires s unless the actor already replaced it.
func (o *output) finish(s *stream, err error) {
	o.next = nil
	if !o.cur.CompareAndSwap(s, nil) {
		return
	}
	s.pcm.Close()
	o.ended(s.gen, err)
}
