package edl

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/creasty/defaults"
	validate "gopkg.in/dealancer/validate.v2"

	"github.com/linuxmatters/edl2ffmpeg/internal/rendererr"
)

// rawTimeline and rawClip mirror the JSON shape. "source" is one flat object
// whose "type" string selects the sum-type variant: empty or "media" for a
// media source, "effect" for an effect source.
type rawTimeline struct {
	FPS    float64   `json:"fps"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Clips  []rawClip `json:"clips"`
}

type rawClip struct {
	In         float64        `json:"in"`
	Out        float64        `json:"out"`
	Track      Track          `json:"track"`
	Source     rawSource      `json:"source"`
	TopFade    float64        `json:"topFade"`
	TailFade   float64        `json:"tailFade"`
	Motion     *Motion        `json:"motion"`
	Transition *Transition    `json:"transition"`
	Effects    []SimpleEffect `json:"effects"`
}

type rawSource struct {
	Type   string        `json:"type"`
	URI    string        `json:"uri"`
	Track  string        `json:"track"`
	InSrc  float64       `json:"inSrc"`
	OutSrc float64       `json:"outSrc"`

	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	Rotation float64 `json:"rotation"`
	FlipH    bool    `json:"flipH"`
	FlipV    bool    `json:"flipV"`

	EffectType string             `json:"effectType"`
	In         float64            `json:"in"`
	Out        float64            `json:"out"`
	Mask       []MaskControlPoint `json:"mask"`
}

// Parse reads, defaults and validates an EDL JSON document. Parse failures
// and validation failures both surface as *rendererr.Error{Kind: KindConfig};
// json.Decoder's own error is wrapped with %w, so its details (such as a
// syntax error's Offset field) stay reachable through errors.As. The message
// text does not include the byte offset.
func Parse(r io.Reader) (*Timeline, error) {
	var raw rawTimeline
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, rendererr.Config("parse EDL: %w", err)
	}

	tl := &Timeline{
		FPS:    raw.FPS,
		Width:  raw.Width,
		Height: raw.Height,
	}
	if err := defaults.Set(tl); err != nil {
		return nil, rendererr.Config("apply EDL defaults: %w", err)
	}

	tl.Clips = make([]Clip, len(raw.Clips))
	for i, rc := range raw.Clips {
		clip := Clip{
			InTL:       rc.In,
			OutTL:      rc.Out,
			Track:      rc.Track,
			TopFade:    rc.TopFade,
			TailFade:   rc.TailFade,
			Motion:     rc.Motion,
			Transition: rc.Transition,
			Effects:    rc.Effects,
		}
		for j := range clip.Effects {
			if err := defaults.Set(&clip.Effects[j]); err != nil {
				return nil, rendererr.ConfigClip(i, "apply effect defaults: %w", err)
			}
		}
		if clip.Motion != nil {
			if err := defaults.Set(clip.Motion); err != nil {
				return nil, rendererr.ConfigClip(i, "apply motion defaults: %w", err)
			}
		}

		src, err := parseSource(rc.Source)
		if err != nil {
			return nil, rendererr.ConfigClip(i, "source: %w", err)
		}
		clip.Source = src

		tl.Clips[i] = clip
	}

	sort.SliceStable(tl.Clips, func(i, j int) bool { return tl.Clips[i].InTL < tl.Clips[j].InTL })

	if err := validate.Validate(tl); err != nil {
		return nil, rendererr.Config("validate EDL: %w", err)
	}

	if err := Validate(tl); err != nil {
		return nil, err
	}

	return tl, nil
}

func parseSource(rs rawSource) (Source, error) {
	switch SourceKind(rs.Type) {
	case SourceMedia, "": // empty type string defaults to media, the common case
		return Source{
			Kind: SourceMedia,
			Media: &MediaSource{
				URI:      rs.URI,
				Track:    rs.Track,
				InSrc:    rs.InSrc,
				OutSrc:   rs.OutSrc,
				Width:    rs.Width,
				Height:   rs.Height,
				FPS:      rs.FPS,
				Rotation: rs.Rotation,
				FlipH:    rs.FlipH,
				FlipV:    rs.FlipV,
			},
		}, nil
	case SourceEffect:
		return Source{
			Kind: SourceEffect,
			Effect: &EffectSource{
				EffectType: rs.EffectType,
				In:         rs.In,
				Out:        rs.Out,
				Mask:       rs.Mask,
			},
		}, nil
	default:
		return Source{}, fmt.Errorf("unknown source type %q", rs.Type)
	}
}

// Validate checks the hand-rolled invariants a generic struct validator
// cannot express: disjoint same-track intervals, fade budget, and
// source/timeline duration matching under identity remap.
func Validate(tl *Timeline) error {
	if tl.FPS <= 0 {
		return rendererr.Config("fps must be positive, got %v", tl.FPS)
	}
	if tl.Width <= 0 || tl.Height <= 0 {
		return rendererr.Config("width/height must be positive, got %dx%d", tl.Width, tl.Height)
	}

	byTrack := make(map[Track][]*Clip)
	for i := range tl.Clips {
		c := &tl.Clips[i]

		if c.OutTL < c.InTL {
			return rendererr.ConfigClip(i, "clip out (%v) precedes in (%v)", c.OutTL, c.InTL)
		}
		if c.TopFade < 0 || c.TailFade < 0 {
			return rendererr.ConfigClip(i, "fades must be non-negative")
		}
		if c.TopFade+c.TailFade > c.Duration()+1e-9 {
			return rendererr.ConfigClip(i, "topFade+tailFade (%v) exceeds clip duration (%v)", c.TopFade+c.TailFade, c.Duration())
		}

		switch c.Source.Kind {
		case SourceMedia:
			m := c.Source.Media
			if m == nil || m.URI == "" {
				return rendererr.ConfigClip(i, "media source missing uri")
			}
			if m.OutSrc < m.InSrc {
				return rendererr.ConfigClip(i, "source out (%v) precedes source in (%v)", m.OutSrc, m.InSrc)
			}
			srcDur := m.OutSrc - m.InSrc
			tlDur := c.Duration()
			if srcDur > 0 && tlDur > 0 {
				const eps = 1e-6
				if diff := srcDur - tlDur; diff > eps || diff < -eps {
					return rendererr.ConfigClip(i, "source range %.6fs does not match timeline duration %.6fs (no time remap specified)", srcDur, tlDur)
				}
			}
		case SourceEffect:
			// Accepted by the schema, rejected at render time.
		default:
			return rendererr.ConfigClip(i, "unknown source kind %q", c.Source.Kind)
		}

		for _, eff := range c.Effects {
			switch eff.Type {
			case EffectBrightness, EffectContrast:
			default:
				return rendererr.ConfigClip(i, "unknown effect type %q", eff.Type)
			}
		}

		byTrack[c.Track] = append(byTrack[c.Track], c)
	}

	for track, clips := range byTrack {
		sort.Slice(clips, func(i, j int) bool { return clips[i].InTL < clips[j].InTL })
		for i := 1; i < len(clips); i++ {
			if clips[i].InTL < clips[i-1].OutTL-1e-9 {
				return rendererr.Config("overlapping clips on track %s%d: [%v,%v) and [%v,%v)",
					track.Type, track.Number, clips[i-1].InTL, clips[i-1].OutTL, clips[i].InTL, clips[i].OutTL)
			}
		}
	}

	return nil
}
