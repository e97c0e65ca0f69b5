package scoring

import (
	"math"
	"sort"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
)

// Default reference engine parameters.
const (
	defaultConeCapacity   = 64
	defaultConeThreads    = 1
	defaultConeHalfAngle  = 10 * math.Pi / 180
	defaultRingStep       = 1.5 * math.Pi / 180
	defaultRaysPerRing    = 6
	goldenAngle           = 2.399963229728653
	hitScore              = 1.0
	degenerateAxisEpsilon = 1e-9
)

// ConeEngine is a deterministic pure-Go scorer. A candidate scores by how
// far its bounding sphere sits inside a cone around the gaze ray; the
// candidate physically hit by the gaze ray scores 1. Candidates with zero
// bounds are unscorable and score 0 unless hit.
type ConeEngine struct {
	HalfAngle   float64 // radians
	RingStep    float64 // radians between search rings
	RaysPerRing int
}

// NewConeEngine returns a ConeEngine with default parameters.
func NewConeEngine() *ConeEngine {
	return &ConeEngine{
		HalfAngle:   defaultConeHalfAngle,
		RingStep:    defaultRingStep,
		RaysPerRing: defaultRaysPerRing,
	}
}

// DefaultOptions implements Engine.
func (e *ConeEngine) DefaultOptions() (Options, Status) {
	return Options{Capacity: defaultConeCapacity, ThreadCount: defaultConeThreads}, StatusOK
}

// Version implements Engine.
func (e *ConeEngine) Version() Version { return Version{Major: 1, Minor: 0, Build: 0} }

// Create implements Engine.
func (e *ConeEngine) Create(opts Options) (Handle, Status) {
	if opts.Capacity == 0 {
		return nil, StatusIndexOutOfBounds
	}
	if e.HalfAngle <= 0 || e.RaysPerRing <= 0 || e.RingStep <= 0 {
		return nil, StatusInternal
	}
	return &coneHandle{engine: *e, capacity: int(opts.Capacity)}, StatusOK
}

type coneHandle struct {
	engine    ConeEngine
	capacity  int
	phase     float64
	destroyed bool
}

func (h *coneHandle) SearchPattern(sample *model.DeviceSample, rays []geom.GazeRay) Status {
	if h.destroyed || sample == nil {
		return StatusNullPointerPassed
	}
	if len(rays) == 0 {
		return StatusOK
	}
	if !sample.Gaze.Valid {
		for i := range rays {
			rays[i] = geom.GazeRay{}
		}
		return StatusOK
	}

	dir := sample.Gaze.Ray.Direction.Normalize()
	origin := sample.Gaze.Ray.Origin
	right, up := basis(dir, sample.CameraRight, sample.CameraUp)

	rays[0] = geom.GazeRay{Ray: geom.Ray{Origin: origin, Direction: dir}, Valid: true}
	per := h.engine.RaysPerRing
	for i := 1; i < len(rays); i++ {
		ring := (i-1)/per + 1
		slot := (i - 1) % per
		phi := h.phase + float64(slot)*2*math.Pi/float64(per) + float64(ring)*math.Pi/float64(per)
		spread := math.Tan(float64(ring) * h.engine.RingStep)
		off := right.Scale(math.Cos(phi)).Add(up.Scale(math.Sin(phi))).Scale(spread)
		rays[i] = geom.GazeRay{Ray: geom.Ray{Origin: origin, Direction: dir.Add(off).Normalize()}, Valid: true}
	}
	h.phase = math.Mod(h.phase+goldenAngle, 2*math.Pi)
	return StatusOK
}

func (h *coneHandle) Process(sample *model.DeviceSample, hit model.RaycastHit, candidates []model.CandidateGeometry, results []model.ScoredCandidate) Status {
	if h.destroyed || sample == nil {
		return StatusNullPointerPassed
	}
	if len(candidates) > h.capacity {
		return StatusCapacityExceeded
	}
	if len(results) < len(candidates) {
		return StatusIndexOutOfBounds
	}

	gaze := sample.Gaze
	dir := gaze.Ray.Direction.Normalize()
	for i, c := range candidates {
		centerW := c.LocalToWorld.MulPoint(c.Bounds.Center())
		row := model.ScoredCandidate{ID: c.ID}
		if gaze.Valid {
			row.Score = h.score(gaze.Ray.Origin, dir, c, centerW)
			if hit.Valid && hit.CandidateID == c.ID {
				row.Score = hitScore
			}
		}
		if row.Score > 0 {
			row.AdjustedRay = geom.GazeRay{
				Ray:   geom.Ray{Origin: gaze.Ray.Origin, Direction: centerW.Sub(gaze.Ray.Origin).Normalize()},
				Valid: true,
			}
		}
		results[i] = row
	}

	rows := results[:len(candidates)]
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].ID < rows[j].ID
	})
	return StatusOK
}

func (h *coneHandle) score(origin, dir geom.Vec3, c model.CandidateGeometry, centerW geom.Vec3) float64 {
	if c.Bounds.Empty() {
		return 0
	}
	toCenter := centerW.Sub(origin)
	dist := toCenter.Length()
	if dist == 0 {
		return hitScore
	}
	radius := c.LocalToWorld.MulVector(c.Bounds.Extent().Scale(0.5)).Length()
	if radius >= dist {
		return hitScore
	}
	off := dir.Angle(toCenter) - math.Asin(radius/dist)
	if off <= 0 {
		return hitScore
	}
	return math.Max(0, 1-off/h.engine.HalfAngle)
}

func (h *coneHandle) Destroy() Status {
	if h.destroyed {
		return StatusNullPointerPassed
	}
	h.destroyed = true
	return StatusOK
}

// basis returns unit right/up vectors orthogonal to dir, preferring the
// camera axes when they are usable.
func basis(dir, camRight, camUp geom.Vec3) (geom.Vec3, geom.Vec3) {
	up := camUp.Sub(dir.Scale(camUp.Dot(dir)))
	if up.Length() < degenerateAxisEpsilon {
		up = camRight.Cross(dir)
	}
	if up.Length() < degenerateAxisEpsilon {
		up = geom.Up.Sub(dir.Scale(dir.Y))
		if up.Length() < degenerateAxisEpsilon {
			up = geom.Forward.Sub(dir.Scale(dir.Z))
		}
	}
	up = up.Normalize()
	right := up.Cross(dir).Normalize()
	return right, up
}
