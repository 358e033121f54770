package vision

import (
	"errors"
	"image"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/fingerprint"
)

// ErrFlatImage is returned when a reference photo has no contrast to match on.
var ErrFlatImage = errors.New("reference photo is uniform")

// Match is the best reference photo for a probe.
type Match struct {
	ID    string  `json:"student_id"`
	Score float64 `json:"score"`
}

// Gallery identifies a face by template matching against one reference photo
// per student. An HNSW cosine graph narrows the candidates; each candidate is
// then re-scored with the exact correlation.
type Gallery struct {
	mu        sync.RWMutex
	size      int
	threshold float64
	graph     *hnsw.Graph[string]
	templates map[string]fingerprint.Template
}

// NewGallery creates an empty gallery of size x size templates.
// A probe matches when its correlation with a template exceeds threshold.
func NewGallery(size int, threshold float64) *Gallery {
	return &Gallery{
		size:      size,
		threshold: threshold,
		graph:     newGraph(),
		templates: make(map[string]fingerprint.Template),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = constants.GalleryMaxNeighbors
	g.Ml = 1.0 / float64(constants.GalleryMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Threshold returns the match threshold.
func (g *Gallery) Threshold() float64 {
	return g.threshold
}

// Enroll stores the template of a reference photo, replacing any earlier one.
func (g *Gallery) Enroll(id string, img image.Image) (fingerprint.Template, error) {
	t := fingerprint.NewTemplate(img, g.size)
	if t.Flat {
		return t, ErrFlatImage
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	_, replaced := g.templates[id]
	g.templates[id] = t
	if replaced {
		g.rebuild()
	} else {
		g.graph.Add(hnsw.MakeNode(id, t.Vector))
	}
	return t, nil
}

// Remove forgets the reference photo of id.
func (g *Gallery) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.templates[id]; !ok {
		return
	}
	delete(g.templates, id)
	g.rebuild()
}

// rebuild recreates the graph from the stored templates. hnsw.Graph.Delete
// leaves dangling neighbours that break later Add and Search calls, so keys
// are never deleted from a graph.
func (g *Gallery) rebuild() {
	ids := make([]string, 0, len(g.templates))
	for id := range g.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g.graph = newGraph()
	for _, id := range ids {
		g.graph.Add(hnsw.MakeNode(id, g.templates[id].Vector))
	}
}

// Len returns the number of enrolled reference photos.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.templates)
}

// Template returns the stored template of id.
func (g *Gallery) Template(id string) (fingerprint.Template, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.templates[id]
	return t, ok
}

// Probe builds the template of a frame: the largest detected face, or the
// whole frame when nothing was detected.
func (g *Gallery) Probe(frame image.Image, regions []Region) fingerprint.Template {
	if rect, ok := fingerprint.Largest(Rects(regions)); ok {
		frame = fingerprint.Crop(frame, rect)
	}
	return fingerprint.NewTemplate(frame, g.size)
}

// Identify returns the best match for a frame when it clears the threshold.
func (g *Gallery) Identify(frame image.Image, regions []Region) (Match, bool) {
	return g.Best(g.Probe(frame, regions))
}

// Best returns the highest scoring template when it clears the threshold.
func (g *Gallery) Best(probe fingerprint.Template) (Match, bool) {
	if probe.Flat {
		return Match{}, false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []string
	if len(g.templates) <= constants.GalleryCandidates {
		for id := range g.templates {
			ids = append(ids, id)
		}
	} else {
		for _, n := range g.graph.Search(probe.Vector, constants.GalleryCandidates) {
			ids = append(ids, n.Key)
		}
	}
	sort.Strings(ids)

	best := Match{Score: -2}
	for _, id := range ids {
		t, ok := g.templates[id]
		if !ok {
			continue
		}
		if score := fingerprint.Correlation(probe, t); score > best.Score {
			best = Match{ID: id, Score: score}
		}
	}

	if best.ID == "" || best.Score <= g.threshold {
		return best, false
	}
	return best, true
}
