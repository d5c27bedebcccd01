package scan

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/sensitivity"
)

// AnalysisRequest asks for one assessment per pet over the same ingredient list.
type AnalysisRequest struct {
	SessionID   uuid.UUID
	Ingredients []string
	Pets        []entity.PetProfile
}

// Analyzer is the submit-then-poll analysis collaborator. Poll reports
// done=false until the job's assessments are ready.
type Analyzer interface {
	Submit(ctx context.Context, req AnalysisRequest) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (assessments []sensitivity.Assessment, done bool, err error)
}

// LocalAnalyzer runs assessments in process. Submit computes the result
// immediately; Poll hands it out once and forgets it.
type LocalAnalyzer struct {
	assessor *sensitivity.Assessor

	mu   sync.Mutex
	jobs map[string][]sensitivity.Assessment
}

func NewLocalAnalyzer(a *sensitivity.Assessor) *LocalAnalyzer {
	if a == nil {
		a = sensitivity.NewAssessor()
	}
	return &LocalAnalyzer{assessor: a, jobs: map[string][]sensitivity.Assessment{}}
}

func (l *LocalAnalyzer) Submit(ctx context.Context, req AnalysisRequest) (string, error) {
	res, err := AssessAll(ctx, l.assessor, req.Ingredients, req.Pets)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	l.mu.Lock()
	l.jobs[id] = res
	l.mu.Unlock()
	return id, nil
}

func (l *LocalAnalyzer) Poll(_ context.Context, jobID string) ([]sensitivity.Assessment, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.jobs[jobID]
	if !ok {
		return nil, false, fmt.Errorf("analysis job %s: %w", jobID, common.ErrNotFound)
	}
	delete(l.jobs, jobID)
	return res, true, nil
}

// AssessAll assesses ingredients for every pet concurrently. The result is
// in pet order.
func AssessAll(ctx context.Context, a *sensitivity.Assessor, ingredients []string, pets []entity.PetProfile) ([]sensitivity.Assessment, error) {
	if a == nil {
		a = sensitivity.NewAssessor()
	}
	out := make([]sensitivity.Assessment, len(pets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range pets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = a.Assess(ingredients, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
