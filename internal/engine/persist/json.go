package persist

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// ExportJSON renders the timeline as a JSON document for interchange
// with external tools. Times are integer microseconds. The document is
// lossy compared to the binary format only in entity identity: IDs are
// included for cross-referencing but remapped on import.
func ExportJSON(m *timeline.Model) ([]byte, error) {
	out := []byte(`{}`)
	var err error

	set := func(path string, value interface{}) {
		if err != nil {
			return
		}
		out, err = sjson.SetBytes(out, path, value)
	}

	set("version", fmt.Sprintf("%d.%d", formatMajor, formatMinor))
	set("playhead", int64(m.Playhead()))
	set("duration", int64(m.Duration()))

	for ti, trackID := range m.Tracks() {
		t, ok := m.Track(trackID)
		if !ok {
			continue
		}
		p := fmt.Sprintf("tracks.%d", ti)
		set(p+".id", uint64(trackID))
		set(p+".name", t.Name)
		set(p+".type", t.Type.String())
		set(p+".index", t.Index)
		set(p+".height", t.Height)
		set(p+".locked", t.Locked)
		set(p+".muted", t.Muted)
		set(p+".soloed", t.Soloed)
		set(p+".color", string(t.Color))
		if t.Parent != store.InvalidID {
			set(p+".parent", uint64(t.Parent))
		}

		for ci, clipID := range m.ClipsOnTrack(trackID) {
			c, ok := m.Clip(clipID)
			if !ok {
				continue
			}
			cp := fmt.Sprintf("%s.clips.%d", p, ci)
			set(cp+".id", uint64(clipID))
			set(cp+".name", c.Name)
			set(cp+".media", c.Media.String())
			set(cp+".source", []int64{int64(c.Source.Start), int64(c.Source.End)})
			set(cp+".timeline", []int64{int64(c.Timeline.Start), int64(c.Timeline.End)})
			set(cp+".speed", c.Speed)
			set(cp+".reversed", c.Reversed)
			set(cp+".muted", c.Muted)
			set(cp+".locked", c.Locked)
			set(cp+".volume", c.Volume)
			set(cp+".opacity", c.Opacity)
			set(cp+".blend", c.Blend.String())
			for ei, e := range c.Effects {
				ep := fmt.Sprintf("%s.effects.%d", cp, ei)
				set(ep+".ref", e.Ref)
				for k, v := range e.Params {
					set(ep+".params."+k, jsonValue(v))
				}
			}
			for ki, kf := range c.Keyframes {
				kp := fmt.Sprintf("%s.keyframes.%d", cp, ki)
				set(kp+".time", int64(kf.Time))
				set(kp+".param", kf.Param)
				set(kp+".value", jsonValue(kf.Value))
				set(kp+".interp", int(kf.Interp))
			}
		}
	}

	for mi, id := range m.Markers() {
		mk, ok := m.Marker(id)
		if !ok {
			continue
		}
		p := fmt.Sprintf("markers.%d", mi)
		set(p+".name", mk.Name)
		set(p+".color", string(mk.Color))
		set(p+".range", []int64{int64(mk.Range.Start), int64(mk.Range.End)})
		for k, v := range mk.Metadata {
			set(p+".metadata."+k, v)
		}
		if len(mk.Tags) > 0 {
			set(p+".tags", mk.Tags)
		}
	}

	for ti, id := range m.Transitions() {
		tr, ok := m.Transition(id)
		if !ok {
			continue
		}
		p := fmt.Sprintf("transitions.%d", ti)
		set(p+".kind", tr.Kind)
		set(p+".range", []int64{int64(tr.Range.Start), int64(tr.Range.End)})
		set(p+".from", uint64(tr.From))
		set(p+".to", uint64(tr.To))
		for k, v := range tr.Params {
			set(p+".params."+k, jsonValue(v))
		}
	}

	if err != nil {
		return nil, fmt.Errorf("export json: %w", err)
	}
	return out, nil
}

// ImportJSON rebuilds a timeline from an ExportJSON document. Entity
// IDs in the document are remapped to fresh ones.
func ImportJSON(data []byte) (*timeline.Model, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("import json: %w", ErrCorruptData)
	}
	doc := gjson.ParseBytes(data)

	m := timeline.New()
	tracks := make(map[uint64]store.ID)
	clips := make(map[uint64]store.ID)

	var err error
	doc.Get("tracks").ForEach(func(_, jt gjson.Result) bool {
		t := timeline.NewTrack(
			jt.Get("name").String(),
			trackTypeFromName(jt.Get("type").String()),
			int(jt.Get("index").Int()),
		)
		if v := jt.Get("height"); v.Exists() {
			t.Height = int(v.Int())
		}
		t.Locked = jt.Get("locked").Bool()
		t.Muted = jt.Get("muted").Bool()
		t.Soloed = jt.Get("soloed").Bool()
		if v := jt.Get("color"); v.Exists() {
			t.Color = timeline.Color(v.String())
		}

		id := m.CreateTrack(t.Name, t.Type, t.Index)
		if serr := m.SetTrack(id, t); serr != nil {
			err = fmt.Errorf("import track %q: %w", t.Name, serr)
			return false
		}
		tracks[jt.Get("id").Uint()] = id

		jt.Get("clips").ForEach(func(_, jc gjson.Result) bool {
			c, cerr := clipFromJSON(jc, id)
			if cerr != nil {
				err = cerr
				return false
			}
			// Placement is validated after transitions are attached:
			// an overlap may be sanctioned by one.
			clips[jc.Get("id").Uint()] = m.PlaceClip(c)
			return true
		})
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	// Parent links may reference tracks that appeared later.
	doc.Get("tracks").ForEach(func(_, jt gjson.Result) bool {
		pv := jt.Get("parent")
		if !pv.Exists() {
			return true
		}
		id, ok := tracks[jt.Get("id").Uint()]
		parent, pok := tracks[pv.Uint()]
		if !ok || !pok {
			err = fmt.Errorf("import track parent: %w", ErrCorruptData)
			return false
		}
		t, _ := m.Track(id)
		t.Parent = parent
		if serr := m.SetTrack(id, t); serr != nil {
			err = fmt.Errorf("import track parent: %w", serr)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	doc.Get("markers").ForEach(func(_, jm gjson.Result) bool {
		mk := timeline.Marker{
			Name:  jm.Get("name").String(),
			Color: timeline.Color(jm.Get("color").String()),
			Range: rangeFromJSON(jm.Get("range")),
		}
		jm.Get("metadata").ForEach(func(k, v gjson.Result) bool {
			if mk.Metadata == nil {
				mk.Metadata = make(map[string]string)
			}
			mk.Metadata[k.String()] = v.String()
			return true
		})
		jm.Get("tags").ForEach(func(_, v gjson.Result) bool {
			mk.Tags = append(mk.Tags, v.String())
			return true
		})
		m.AddMarker(mk)
		return true
	})

	doc.Get("transitions").ForEach(func(_, jt gjson.Result) bool {
		from, okFrom := clips[jt.Get("from").Uint()]
		to, okTo := clips[jt.Get("to").Uint()]
		if !okFrom || !okTo {
			err = fmt.Errorf("import transition: %w", ErrCorruptData)
			return false
		}
		tr := timeline.Transition{
			Kind:   jt.Get("kind").String(),
			Range:  rangeFromJSON(jt.Get("range")),
			From:   from,
			To:     to,
			Params: paramsFromJSON(jt.Get("params")),
		}
		if _, terr := m.AddTransition(tr); terr != nil {
			err = fmt.Errorf("import transition: %w", terr)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	for _, id := range clips {
		c, _ := m.Clip(id)
		if cerr := m.CheckPlacement(c.Track, id, c.Timeline); cerr != nil {
			return nil, fmt.Errorf("import clip: %w: %v", ErrCorruptData, cerr)
		}
	}

	m.SetPlayhead(timecode.TimePoint(doc.Get("playhead").Int()))
	return m, nil
}

func clipFromJSON(jc gjson.Result, track store.ID) (timeline.Clip, error) {
	media, err := uuid.Parse(jc.Get("media").String())
	if err != nil {
		return timeline.Clip{}, fmt.Errorf("import clip media: %w", ErrCorruptData)
	}

	c := timeline.NewClip(media, rangeFromJSON(jc.Get("source")), 0)
	c.Track = track
	c.Name = jc.Get("name").String()
	c.Timeline = rangeFromJSON(jc.Get("timeline"))
	if v := jc.Get("speed"); v.Exists() {
		c.Speed = v.Float()
	}
	c.Reversed = jc.Get("reversed").Bool()
	c.Muted = jc.Get("muted").Bool()
	c.Locked = jc.Get("locked").Bool()
	if v := jc.Get("volume"); v.Exists() {
		c.Volume = v.Float()
	}
	if v := jc.Get("opacity"); v.Exists() {
		c.Opacity = v.Float()
	}
	c.Blend = blendFromName(jc.Get("blend").String())

	jc.Get("effects").ForEach(func(_, je gjson.Result) bool {
		c.Effects = append(c.Effects, timeline.Effect{
			Ref:    je.Get("ref").String(),
			Params: paramsFromJSON(je.Get("params")),
		})
		return true
	})
	jc.Get("keyframes").ForEach(func(_, jk gjson.Result) bool {
		c.Keyframes = append(c.Keyframes, timeline.Keyframe{
			Time:   timecode.TimePoint(jk.Get("time").Int()),
			Param:  jk.Get("param").String(),
			Value:  valueFromJSON(jk.Get("value")),
			Interp: timeline.InterpKind(jk.Get("interp").Int()),
		})
		return true
	})
	return c, nil
}

// jsonValue renders a Value as its natural JSON shape: number, array
// of numbers, or string.
func jsonValue(v timeline.Value) interface{} {
	if f, ok := v.AsFloat(); ok {
		return f
	}
	if vec, ok := v.AsVec(); ok {
		return vec
	}
	if s, ok := v.AsString(); ok {
		return s
	}
	return nil
}

func valueFromJSON(r gjson.Result) timeline.Value {
	switch r.Type {
	case gjson.String:
		return timeline.Str(r.String())
	case gjson.Number:
		return timeline.Float(r.Float())
	case gjson.JSON:
		if !r.IsArray() {
			return timeline.Value{}
		}
		var vec []float64
		r.ForEach(func(_, e gjson.Result) bool {
			vec = append(vec, e.Float())
			return true
		})
		switch len(vec) {
		case 2:
			return timeline.Vec2(vec[0], vec[1])
		case 3:
			return timeline.Vec3(vec[0], vec[1], vec[2])
		case 4:
			return timeline.Vec4(vec[0], vec[1], vec[2], vec[3])
		}
	}
	return timeline.Value{}
}

func paramsFromJSON(r gjson.Result) map[string]timeline.Value {
	if !r.Exists() {
		return nil
	}
	params := make(map[string]timeline.Value)
	r.ForEach(func(k, v gjson.Result) bool {
		params[k.String()] = valueFromJSON(v)
		return true
	})
	if len(params) == 0 {
		return nil
	}
	return params
}

func rangeFromJSON(r gjson.Result) timecode.TimeRange {
	arr := r.Array()
	if len(arr) != 2 {
		return timecode.TimeRange{}
	}
	return timecode.TimeRange{
		Start: timecode.TimePoint(arr[0].Int()),
		End:   timecode.TimePoint(arr[1].Int()),
	}
}

func trackTypeFromName(name string) timeline.TrackType {
	switch name {
	case "audio":
		return timeline.TrackAudio
	case "subtitle":
		return timeline.TrackSubtitle
	case "effect":
		return timeline.TrackEffect
	case "marker":
		return timeline.TrackMarker
	default:
		return timeline.TrackVideo
	}
}

func blendFromName(name string) timeline.BlendMode {
	switch name {
	case "add":
		return timeline.BlendAdd
	case "multiply":
		return timeline.BlendMultiply
	case "screen":
		return timeline.BlendScreen
	case "overlay":
		return timeline.BlendOverlay
	default:
		return timeline.BlendNormal
	}
}
