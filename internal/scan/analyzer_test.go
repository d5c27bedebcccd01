package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/sensitivity"
)

func TestAssessAllKeepsPetOrder(t *testing.T) {
	var pets []entity.PetProfile
	for _, name := range []string{"Rex", "Milo", "Bella", "Luna", "Max", "Coco"} {
		pets = append(pets, entity.PetProfile{ID: uuid.New(), Name: name, Species: "dog", Sensitivities: entity.ParseSensitivities([]string{"beef"})})
	}
	got, err := AssessAll(context.Background(), nil, []string{"Beef", "Rice"}, pets)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(pets) {
		t.Fatalf("got %d assessments", len(got))
	}
	for i, a := range got {
		if a.PetName != pets[i].Name || a.PetID != pets[i].ID {
			t.Fatalf("assessment %d belongs to %s", i, a.PetName)
		}
		if a.SeverityLevel != sensitivity.SeverityModerate {
			t.Fatalf("%s: severity %s", a.PetName, a.SeverityLevel)
		}
	}
}

func TestAssessAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AssessAll(ctx, nil, []string{"Beef"}, []entity.PetProfile{{Name: "Rex"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestLocalAnalyzer(t *testing.T) {
	an := NewLocalAnalyzer(nil)
	ctx := context.Background()

	id, err := an.Submit(ctx, AnalysisRequest{Ingredients: []string{"Chicken"}, Pets: []entity.PetProfile{{Name: "Rex", Species: "dog"}}})
	if err != nil {
		t.Fatal(err)
	}
	res, done, err := an.Poll(ctx, id)
	if err != nil || !done || len(res) != 1 {
		t.Fatalf("poll: res=%v done=%v err=%v", res, done, err)
	}
	if _, _, err := an.Poll(ctx, id); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("second poll: got %v, want ErrNotFound", err)
	}
}
