package report

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"speedlog/internal/models"
)

func samplesOf(kind models.SampleKind, values ...float64) []models.Sample {
	out := make([]models.Sample, len(values))
	for i, v := range values {
		out[i] = models.Sample{Kind: kind, Magnitude: v}
	}
	return out
}

func TestAggregate(t *testing.T) {
	var samples []models.Sample
	samples = append(samples, samplesOf(models.Download, 100, 200)...)
	samples = append(samples, samplesOf(models.Upload, 50)...)

	got, err := Aggregate("example-endpoint", 15, samples)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	want := models.SucceededReport{
		Metadata:    "example-endpoint",
		AvgLatency:  15,
		AvgDownload: 150,
		AvgUpload:   50,
	}
	if got != want {
		t.Errorf("Aggregate = %+v, want %+v", got, want)
	}
}

func TestAggregateIgnoresLatencySamples(t *testing.T) {
	samples := append(samplesOf(models.Latency, 999), samplesOf(models.Download, 10)...)
	samples = append(samples, samplesOf(models.Upload, 20)...)

	got, err := Aggregate("m", 1, samples)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got.AvgDownload != 10 || got.AvgUpload != 20 || got.AvgLatency != 1 {
		t.Errorf("Aggregate = %+v", got)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	var samples []models.Sample
	samples = append(samples, samplesOf(models.Download, 12.5, 80, 33.25, 7, 64)...)
	samples = append(samples, samplesOf(models.Upload, 4, 9.5, 2.25)...)

	base, err := Aggregate("m", 3, samples)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Sample(nil), samples...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Aggregate("m", 3, shuffled)
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		if math.Abs(got.AvgDownload-base.AvgDownload) > 1e-9 || math.Abs(got.AvgUpload-base.AvgUpload) > 1e-9 {
			t.Fatalf("permutation %d changed result: %+v vs %+v", i, got, base)
		}
	}
}

func TestAggregateEmptySampleSet(t *testing.T) {
	tests := []struct {
		name    string
		samples []models.Sample
	}{
		{"no download", samplesOf(models.Upload, 50)},
		{"no upload", samplesOf(models.Download, 100)},
		{"nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate("m", 10, tt.samples)
			if !errors.Is(err, ErrEmptySampleSet) {
				t.Fatalf("err = %v, want ErrEmptySampleSet", err)
			}
			if got != (models.SucceededReport{}) {
				t.Errorf("expected zero report on error, got %+v", got)
			}
		})
	}
}

func TestAggregateRejectsNonFinite(t *testing.T) {
	ok := append(samplesOf(models.Download, 1), samplesOf(models.Upload, 1)...)
	if _, err := Aggregate("m", math.NaN(), ok); err == nil {
		t.Error("expected error for NaN latency")
	}
	bad := append(samplesOf(models.Download, math.Inf(1)), samplesOf(models.Upload, 1)...)
	if _, err := Aggregate("m", 1, bad); err == nil {
		t.Error("expected error for infinite download")
	}
}
