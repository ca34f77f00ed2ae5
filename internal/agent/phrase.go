package agent

import (
	"math"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

// #region select

// SelectNotes picks a parent pair. Each slot independently consults the
// mutation gate: firing prefers AI notes, otherwise human notes weighted
// toward recent phrases. A single note is paired with itself.
func (a *Agent) SelectNotes(all []note.Note) (note.Note, note.Note, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectNotes(a.Hotness(), all)
}

func (a *Agent) selectNotes(h float64, all []note.Note) (note.Note, note.Note, error) {
	switch len(all) {
	case 0:
		return note.Note{}, note.Note{}, ErrNoNotes
	case 1:
		return all[0], all[0], nil
	}
	return a.selectOne(h, all), a.selectOne(h, all), nil
}

func (a *Agent) selectOne(h float64, all []note.Note) note.Note {
	if a.gate.Fires(h) {
		pool := note.BySource(all, note.AI)
		if len(pool) == 0 {
			pool = all
		}
		return pool[a.rng.IntN(len(pool))]
	}

	pool := note.BySource(all, note.Human)
	if len(pool) == 0 {
		pool = all
	}
	if !hasPhrases(pool) {
		return pool[a.rng.IntN(len(pool))]
	}
	return pool[a.weightedIndex(recencyWeights(pool))]
}

func hasPhrases(notes []note.Note) bool {
	for _, n := range notes {
		if n.Phrase > 0 {
			return true
		}
	}
	return false
}

// recencyWeights gives each note 2^(phrase - latest phrase). Untagged notes
// count as phrase 1.
func recencyWeights(notes []note.Note) []float64 {
	latest := 1
	for _, n := range notes {
		latest = max(latest, phraseOf(n))
	}
	weights := make([]float64, len(notes))
	for i, n := range notes {
		weights[i] = math.Exp2(float64(phraseOf(n) - latest))
	}
	return weights
}

func phraseOf(n note.Note) int {
	if n.Phrase <= 0 {
		return 1
	}
	return n.Phrase
}

func (a *Agent) weightedIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := a.rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// #endregion select

// #region generate-phrase

// GeneratePhrase answers the phrase numbered lastPhrase with roughly as many
// notes as it held. Crossover failures skip their slot; a selection failure
// stops generation and returns what was produced with the error.
func (a *Agent) GeneratePhrase(all []note.Note, lastPhrase int) ([]note.Note, error) {
	n := len(note.InPhrase(all, lastPhrase))
	if n == 0 {
		return nil, &GenerationError{Stage: StageCount, Index: -1, Err: ErrEmptyPhrase}
	}
	valid := note.WithPoints(all)
	if len(valid) == 0 {
		return nil, &GenerationError{Stage: StageCount, Index: -1, Err: ErrNoNotes}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	h := a.Hotness()
	target := a.targetCount(n)
	a.logger.Info("generating phrase",
		zap.Int("last_phrase", lastPhrase),
		zap.Int("phrase_notes", n),
		zap.Int("pool", len(valid)),
		zap.Int("target", target),
		zap.Float64("hotness", h),
	)

	out := make([]note.Note, 0, target)
	for i := 0; i < target; i++ {
		p1, p2, err := a.selectNotes(h, valid)
		if err != nil {
			return out, &GenerationError{Stage: StageSelect, Index: i, Err: err}
		}
		child, err := a.crossover(h, p1, p2)
		if err != nil {
			a.logger.Warn("crossover failed, skipping slot",
				zap.Int("slot", i),
				zap.Error(&GenerationError{Stage: StageCrossover, Index: i, Err: err}),
			)
			continue
		}
		out = append(out, child)
	}
	return out, nil
}

// targetCount is max(1, round(n + U(-1,1)·spread·n)).
func (a *Agent) targetCount(n int) int {
	variance := (a.rng.Float64()*2 - 1) * a.config.CountSpread * float64(n)
	return max(1, int(math.Round(float64(n)+variance)))
}

// #endregion generate-phrase
