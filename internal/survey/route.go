package survey

import (
	"fmt"
	"time"

	"github.com/ukydev/fleet-logbook/internal/models"
)

// Options tune the generated pattern. Zero values take the defaults below.
type Options struct {
	UseBoxLeadins bool `json:"use_box_leadins"`
	// BoxLeadinAngleThreshold is the turn-in angle, in degrees, above which a
	// box lead-in replaces the direct one.
	BoxLeadinAngleThreshold float64 `json:"box_leadin_angle_threshold"`
	TrackLength             float64 `json:"track_length"`    // metres
	LeadinDistance          float64 `json:"leadin_distance"` // metres before the first track start
	RunOut                  float64 `json:"run_out"`         // metres past a track end before turning
	TurnOffset              float64 `json:"turn_offset"`     // lateral metres of the turn point
	PortTurns               bool    `json:"port_turns"`      // turn to port instead of starboard
	SpeedKnots              float64 `json:"speed_knots"`
}

const (
	defaultBoxThreshold = 45.0
	defaultTrackLength  = 200.0
	defaultLeadin       = 50.0
	defaultRunOut       = 20.0
	defaultTurnOffset   = 10.0
	defaultSpeedKnots   = 4.0

	metresPerNauticalMile = 1852.0
)

func (o Options) withDefaults() Options {
	if o.BoxLeadinAngleThreshold == 0 {
		o.BoxLeadinAngleThreshold = defaultBoxThreshold
	}
	if o.TrackLength == 0 {
		o.TrackLength = defaultTrackLength
	}
	if o.LeadinDistance == 0 {
		o.LeadinDistance = defaultLeadin
	}
	if o.RunOut == 0 {
		o.RunOut = defaultRunOut
	}
	if o.TurnOffset == 0 {
		o.TurnOffset = defaultTurnOffset
	}
	if o.SpeedKnots == 0 {
		o.SpeedKnots = defaultSpeedKnots
	}
	return o
}

// WaypointKind classifies a waypoint within a pattern.
type WaypointKind string

const (
	KindLeadin     WaypointKind = "leadin"
	KindBoxLeadin  WaypointKind = "box_leadin"
	KindTrackStart WaypointKind = "track_start"
	KindTrackEnd   WaypointKind = "track_end"
	KindTurn       WaypointKind = "turn"
)

// WaypointData is one waypoint with the leg that reaches it.
type WaypointData struct {
	Tag      string          `json:"tag"`
	Kind     WaypointKind    `json:"kind"`
	Target   string          `json:"target"`
	Position models.Location `json:"position"`
	// Course and Distance describe the leg from the previous waypoint. The
	// first waypoint of a route has no leg; its course points at the second.
	Course   float64       `json:"course"`
	Distance float64       `json:"distance"`
	Duration time.Duration `json:"duration"`
}

// Route is a generated survey route.
type Route struct {
	Output    []string       `json:"output"`
	Waypoints []WaypointData `json:"waypoints"`
}

// GenerateSurveyRoute builds the waypoint sequence for all targets in order
// and renders it as text. It is a pure function of its inputs.
func GenerateSurveyRoute(targets []Target, opts Options) Route {
	opts = opts.withDefaults()
	var (
		wps  []WaypointData
		last *models.Location
	)
	for _, t := range targets {
		tracks := trackLines(t, opts.TrackLength)
		if len(tracks) == 0 {
			continue
		}
		wps = append(wps, leadin(t, tracks[0], last, opts)...)
		for k, tr := range tracks {
			if k > 0 || last != nil {
				wps = append(wps, waypoint(t, fmt.Sprintf("%s_S%d", t.ID, k+1), KindTrackStart, tr.start))
			}
			wps = append(wps, waypoint(t, fmt.Sprintf("%s_E%d", t.ID, k+1), KindTrackEnd, tr.end))
			if k+1 < len(tracks) {
				wps = append(wps, turn(t, k, tr, tracks[k+1], opts)...)
			}
		}
		end := tracks[len(tracks)-1].end
		last = &end
	}

	fillLegs(wps, opts.SpeedKnots)
	return Route{Output: FormatRoute(wps), Waypoints: wps}
}

type track struct {
	start, end models.Location
	bearing    float64
}

// TrackOffsets returns the lateral offsets of a target's tracks, starboard
// positive. An odd count is centred on 0 and includes the centreline; an even
// count straddles 0 at half spacing.
func TrackOffsets(numTracks int, spacing float64) []float64 {
	if numTracks <= 0 {
		return nil
	}
	out := make([]float64, numTracks)
	if numTracks%2 == 1 {
		half := numTracks / 2
		for i := range out {
			out[i] = float64(i-half) * spacing
		}
		return out
	}
	half := numTracks / 2
	for i := range out {
		out[i] = (float64(i-half) + 0.5) * spacing
	}
	return out
}

// trackLines lays the tracks out port to starboard, every other one reversed.
func trackLines(t Target, length float64) []track {
	offsets := TrackOffsets(t.NumTracks, t.Spacing)
	out := make([]track, 0, len(offsets))
	for k, off := range offsets {
		centre := offset(t.Position, off, t.Bearing)
		dir := t.Bearing
		if k%2 == 1 {
			dir += 180
		}
		dir = normalizeBearing(dir)
		out = append(out, track{
			start:   Destination(centre, length/2, dir+180),
			end:     Destination(centre, length/2, dir),
			bearing: dir,
		})
	}
	return out
}

// leadin returns the waypoints that bring the vehicle onto the first track.
// The first target starts right on its first track; later targets get a
// lead-in point before the track start, or a box when the turn-in is sharp.
func leadin(t Target, first track, from *models.Location, opts Options) []WaypointData {
	tag := t.ID + "_LI"
	if from == nil {
		return []WaypointData{waypoint(t, tag, KindLeadin, first.start)}
	}

	back := normalizeBearing(first.bearing + 180)
	point := Destination(first.start, opts.LeadinDistance, back)
	_, approach := Inverse(*from, point)
	if !opts.UseBoxLeadins || angleDiff(approach, first.bearing) <= opts.BoxLeadinAngleThreshold {
		return []WaypointData{waypoint(t, tag, KindLeadin, point)}
	}

	// Come in square: abeam and behind the lead-in point, across onto the
	// track extension, then forward onto the lead-in point.
	_, toFrom := Inverse(point, *from)
	side := first.bearing + 90
	if angleDiff(toFrom, side) > 90 {
		side = first.bearing - 90
	}
	advance := Destination(point, opts.LeadinDistance, back)
	abeam := Destination(advance, opts.LeadinDistance, side)
	return []WaypointData{
		waypoint(t, tag+"_1", KindBoxLeadin, abeam),
		waypoint(t, tag+"_2", KindBoxLeadin, advance),
		waypoint(t, tag+"_3", KindBoxLeadin, point),
	}
}

// turn returns the four waypoints between track k and track k+1: extend past
// the end, turn out, cross to the next track's line, join it short of its start.
func turn(t Target, k int, cur, next track, opts Options) []WaypointData {
	turnBearing := cur.bearing + 90
	if opts.PortTurns {
		turnBearing = cur.bearing - 90
	}
	_, toNext := Inverse(cur.end, next.start)
	spacing := t.Spacing
	if spacing < 0 {
		spacing = -spacing
	}

	// When the turn already heads toward the next track, the turn offset is
	// part of the crossing; otherwise it has to be crossed back.
	cross := spacing + opts.TurnOffset
	if angleDiff(turnBearing, toNext) < 90 {
		cross = spacing - opts.TurnOffset
	}
	crossBearing := toNext
	if cross < 0 {
		cross, crossBearing = -cross, toNext+180
	}

	extend := Destination(cur.end, opts.RunOut, cur.bearing)
	turnPt := Destination(Destination(extend, opts.RunOut, cur.bearing), opts.TurnOffset, turnBearing)
	crossPt := Destination(turnPt, cross, crossBearing)
	join := Destination(next.start, opts.RunOut, next.bearing+180)

	prefix := fmt.Sprintf("%s_T%d", t.ID, k+1)
	return []WaypointData{
		waypoint(t, prefix+"a", KindTurn, extend),
		waypoint(t, prefix+"b", KindTurn, turnPt),
		waypoint(t, prefix+"c", KindTurn, crossPt),
		waypoint(t, prefix+"d", KindTurn, join),
	}
}

func waypoint(t Target, tag string, kind WaypointKind, p models.Location) WaypointData {
	return WaypointData{Tag: tag, Kind: kind, Target: t.ID, Position: p}
}

// fillLegs sets course, distance and duration of every leg.
func fillLegs(wps []WaypointData, knots float64) {
	speed := knots * metresPerNauticalMile / 3600 // m/s
	for i := range wps {
		if i == 0 {
			if len(wps) > 1 {
				_, wps[0].Course = Inverse(wps[0].Position, wps[1].Position)
			}
			continue
		}
		dist, course := Inverse(wps[i-1].Position, wps[i].Position)
		wps[i].Distance = dist
		wps[i].Course = course
		wps[i].Duration = time.Duration(dist / speed * float64(time.Second))
	}
}
