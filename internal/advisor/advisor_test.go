package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovoice/agrovoice/internal/contextval"
	"github.com/agrovoice/agrovoice/internal/intent"
	"github.com/agrovoice/agrovoice/internal/llm"
	"github.com/agrovoice/agrovoice/pkg/vectorindex"
)

func fieldValue(res *Result, key string) string {
	for _, f := range res.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

func TestCropPlannerParsesLabeledLines(t *testing.T) {
	mock := &llm.MockCompleter{Reply: "crop_type: cabbage\nregion: punjab\nadvice: Transplant after four weeks."}
	w := NewCropPlanner(mock)

	res, err := w.Advise(context.Background(), Input{Text: "when to transplant cabbage"})
	require.NoError(t, err)
	assert.Equal(t, "cabbage", fieldValue(res, "crop_type"))
	assert.Equal(t, "punjab", fieldValue(res, "region"))
	assert.Equal(t, "Transplant after four weeks.", fieldValue(res, "advice"))
	assert.Equal(t, "cabbage", res.ContextUpdates[contextval.KeyCropType])
	assert.Equal(t, "punjab", res.ContextUpdates[contextval.KeyRegion])
}

func TestCropPlannerFallsBackToVocabularyScan(t *testing.T) {
	// Reply has no parseable key/value lines.
	mock := &llm.MockCompleter{Reply: "Just plant whenever you like!"}
	w := NewCropPlanner(mock)

	res, err := w.Advise(context.Background(), Input{
		Text:    "help with my wheat field",
		Context: map[string]string{contextval.KeyRegion: "haryana"},
	})
	require.NoError(t, err)
	assert.Equal(t, "wheat", fieldValue(res, "crop_type"))
	assert.Equal(t, "haryana", fieldValue(res, "region"), "existing region must be reused")
	assert.Equal(t, "Just plant whenever you like!", fieldValue(res, "advice"))
}

func TestCropPlannerUnknownRegionDefault(t *testing.T) {
	mock := &llm.MockCompleter{Err: errors.New("model offline")}
	w := NewCropPlanner(mock)

	res, err := w.Advise(context.Background(), Input{Text: "help with my rice"})
	require.NoError(t, err, "collaborator failure must not fail the worker")
	assert.Equal(t, "rice", fieldValue(res, "crop_type"))
	assert.Equal(t, "unknown", fieldValue(res, "region"))
	assert.NotEmpty(t, fieldValue(res, "advice"))
	assert.NotContains(t, res.ContextUpdates, contextval.KeyRegion,
		"the unknown placeholder must not be stored as context")
}

func TestFertilizerPlannerRecordsLastFertilizer(t *testing.T) {
	mock := &llm.MockCompleter{Reply: "Apply 50kg per acre."}
	w := NewFertilizerPlanner(mock)

	res, err := w.Advise(context.Background(), Input{Text: "is urea good for my wheat"})
	require.NoError(t, err)
	assert.Equal(t, "Apply 50kg per acre.", fieldValue(res, "advice"))
	assert.Equal(t, "urea", fieldValue(res, "last_fertilizer"))
	assert.Equal(t, "urea", res.ContextUpdates[contextval.KeyLastFertilizer])
}

func TestFertilizerPlannerNoKnownFertilizer(t *testing.T) {
	mock := &llm.MockCompleter{Reply: "Feed the soil first."}
	w := NewFertilizerPlanner(mock)

	res, err := w.Advise(context.Background(), Input{Text: "what should I feed my plants"})
	require.NoError(t, err)
	assert.Empty(t, fieldValue(res, "last_fertilizer"))
	assert.Empty(t, res.ContextUpdates)
}

func TestSustainabilityWorkerSoilStatus(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"my soil is drying out", "dry"},
		{"the land looks degraded", "degraded"},
		{"how do I keep soil healthy", "needs_attention"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			mock := &llm.MockCompleter{Reply: "Add organic matter."}
			w := NewSustainabilityWorker(mock)

			res, err := w.Advise(context.Background(), Input{Text: tt.text})
			require.NoError(t, err)
			assert.Equal(t, tt.want, fieldValue(res, "soil_status"))
			assert.Equal(t, tt.want, res.ContextUpdates[contextval.KeySoilStatus])
		})
	}
}

func TestKnowledgeWorkerCitesSources(t *testing.T) {
	idx, err := vectorindex.New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(
		vectorindex.Document{ID: "1", Title: "Cabbage Pests", Content: "Caterpillars eat holes.", Embedding: []float32{1, 0}},
		vectorindex.Document{ID: "2", Title: "Wheat Rust", Content: "Fungal disease.", Embedding: []float32{0, 1}},
	))

	embedder := &llm.MockEmbedder{Dims: 2, Vectors: map[string][]float32{
		"why does my cabbage have holes": {1, 0},
	}}
	mock := &llm.MockCompleter{Reply: "Caterpillars are eating the leaves (Cabbage Pests)."}
	w := NewKnowledgeWorker(mock, embedder, idx, 3)

	res, err := w.Advise(context.Background(), Input{Text: "why does my cabbage have holes"})
	require.NoError(t, err)
	assert.Contains(t, fieldValue(res, "answer"), "Caterpillars")
	assert.Equal(t, "2", fieldValue(res, "source_count"))
	assert.Contains(t, res.Sources, "Cabbage Pests")
	assert.Contains(t, mock.LastPrompt(), "ONLY the excerpts")
	assert.Contains(t, mock.LastPrompt(), "Caterpillars eat holes.")
}

func TestKnowledgeWorkerEmptyCorpusFallsBack(t *testing.T) {
	idx, err := vectorindex.New(2)
	require.NoError(t, err)

	mock := &llm.MockCompleter{Reply: "Generally, rotate crops."}
	w := NewKnowledgeWorker(mock, &llm.MockEmbedder{Dims: 2}, idx, 3)

	res, err := w.Advise(context.Background(), Input{Text: "should I rotate crops"})
	require.NoError(t, err)
	assert.Equal(t, "0", fieldValue(res, "source_count"))
	assert.Empty(t, res.Sources)
	assert.Contains(t, mock.LastPrompt(), "general agricultural knowledge")
	assert.NotContains(t, mock.LastPrompt(), "ONLY the excerpts")
}

func TestKnowledgeWorkerEmbedFailureDegrades(t *testing.T) {
	idx, err := vectorindex.New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(
		vectorindex.Document{ID: "1", Title: "Doc", Content: "text", Embedding: []float32{1, 0}},
	))

	mock := &llm.MockCompleter{Reply: "An uncited answer."}
	w := NewKnowledgeWorker(mock, &llm.MockEmbedder{Dims: 2, Err: errors.New("embed offline")}, idx, 3)

	res, err := w.Advise(context.Background(), Input{Text: "anything"})
	require.NoError(t, err)
	assert.Equal(t, "0", fieldValue(res, "source_count"))
}

type fakeDescriber struct {
	description string
	err         error
}

func (f *fakeDescriber) Describe(ctx context.Context, image []byte) (string, error) {
	return f.description, f.err
}

func TestDiagnosisWorker(t *testing.T) {
	mock := &llm.MockCompleter{Reply: "crop_type: tomato\ndiagnosis: Early blight; remove affected leaves."}
	w := NewDiagnosisWorker(mock, &fakeDescriber{description: "a tomato plant with brown leaf spots"})

	res, err := w.Advise(context.Background(), Input{Image: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Contains(t, fieldValue(res, "diagnosis"), "Early blight")
	assert.Equal(t, "tomato", fieldValue(res, "crop_type"))
	assert.Equal(t, "tomato", res.ContextUpdates[contextval.KeyCropType])
}

func TestDiagnosisWorkerDescriberFailure(t *testing.T) {
	mock := &llm.MockCompleter{Reply: "unused"}
	w := NewDiagnosisWorker(mock, &fakeDescriber{err: errors.New("vision offline")})

	res, err := w.Advise(context.Background(), Input{Image: []byte{1}})
	require.NoError(t, err, "collaborator failure must not fail the worker")
	assert.NotEmpty(t, fieldValue(res, "diagnosis"))
	assert.Empty(t, mock.Prompts, "no completion call without a description")
}

func TestRegistryDispatch(t *testing.T) {
	mock := &llm.MockCompleter{Reply: "x"}
	idx, _ := vectorindex.New(2)
	reg := NewRegistry(
		NewCropPlanner(mock),
		NewFertilizerPlanner(mock),
		NewSustainabilityWorker(mock),
		NewKnowledgeWorker(mock, &llm.MockEmbedder{Dims: 2}, idx, 3),
		NewDiagnosisWorker(mock, &fakeDescriber{}),
	)

	assert.IsType(t, &CropPlanner{}, reg.For(intent.LabelCropAdvice))
	assert.IsType(t, &FertilizerPlanner{}, reg.For(intent.LabelFertilizer))
	assert.IsType(t, &SustainabilityWorker{}, reg.For(intent.LabelSoilHealth))
	assert.IsType(t, &KnowledgeWorker{}, reg.For(intent.LabelFAQ))
	assert.IsType(t, &DiagnosisWorker{}, reg.For(intent.LabelDiagnosis))
	assert.IsType(t, &KnowledgeWorker{}, reg.For(intent.Label("unmapped")), "unmapped labels fall back to faq")
}
