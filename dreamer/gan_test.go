package dreamer

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/openfluke/tetramind/config"
)

func TestDefaultConfigConstructs(t *testing.T) {
	gan, err := NewCreativeGAN(DefaultCreativeGANConfig())
	if err != nil {
		t.Fatalf("default config should construct: %v", err)
	}
	if gan.Generator == nil || gan.Discriminator == nil {
		t.Fatal("submodules not constructed")
	}
}

func TestEveryMissingKeyFails(t *testing.T) {
	full := DefaultCreativeGANConfig()

	for key := range full {
		cfg := full.Clone()
		delete(cfg, key)

		_, err := NewCreativeGAN(cfg)
		if err == nil {
			t.Errorf("construction should fail without key %q", key)
			continue
		}
		var mk *config.MissingKeyError
		if !errors.As(err, &mk) {
			t.Errorf("key %q: expected MissingKeyError, got %v", key, err)
			continue
		}
		if mk.Key != key {
			t.Errorf("expected error naming %q, got %q", key, mk.Key)
		}
	}
}

func TestReconstructionIsIndependent(t *testing.T) {
	cfg := DefaultCreativeGANConfig()

	a, err := NewCreativeGAN(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewCreativeGAN(cfg)
	if err != nil {
		t.Fatal(err)
	}

	before := b.Generator.Layers[0].Weights[0]
	a.Generator.Layers[0].Weights[0] += 100

	if b.Generator.Layers[0].Weights[0] != before {
		t.Error("mutating one composite leaked into the other")
	}
}

func TestGenerateOutputWidth(t *testing.T) {
	gan, err := NewCreativeGAN(DefaultCreativeGANConfig())
	if err != nil {
		t.Fatal(err)
	}

	n := 3
	out, err := gan.Generate(gan.SampleLatent(n))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(out) != n*gan.OutputDim {
		t.Errorf("expected %d values, got %d", n*gan.OutputDim, len(out))
	}

	// Tanh output head keeps samples in [-1, 1]
	for i, v := range out {
		if v < -1 || v > 1 {
			t.Fatalf("out[%d] = %f outside [-1, 1]", i, v)
		}
	}
}

func TestGenerateRejectsBadNoiseLength(t *testing.T) {
	gan, err := NewCreativeGAN(DefaultCreativeGANConfig())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := gan.Generate(make([]float32, gan.LatentDim+1)); err == nil {
		t.Error("expected error for noise not a multiple of latent_dim")
	}
}

func TestTrainRecordsLossHistory(t *testing.T) {
	gan, err := NewCreativeGAN(DefaultCreativeGANConfig())
	if err != nil {
		t.Fatal(err)
	}

	samples := make([][]float32, 8)
	for i := range samples {
		s := make([]float32, gan.OutputDim)
		for j := range s {
			s[j] = float32(rand.NormFloat64() * 0.3)
		}
		samples[i] = s
	}

	tc := &TrainingConfig{Epochs: 3, BatchSize: 4}
	result, err := gan.Train(samples, tc)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if len(result.GeneratorLoss) != 3 || len(result.DiscriminatorLoss) != 3 {
		t.Errorf("expected 3 epochs of losses, got G=%d D=%d",
			len(result.GeneratorLoss), len(result.DiscriminatorLoss))
	}
	for i := range result.GeneratorLoss {
		if math.IsNaN(result.GeneratorLoss[i]) || math.IsNaN(result.DiscriminatorLoss[i]) {
			t.Fatalf("epoch %d produced NaN loss", i)
		}
	}
}

func TestTrainRejectsWrongSampleWidth(t *testing.T) {
	gan, err := NewCreativeGAN(DefaultCreativeGANConfig())
	if err != nil {
		t.Fatal(err)
	}

	_, err = gan.Train([][]float32{make([]float32, gan.OutputDim+1)}, nil)
	if err == nil {
		t.Error("expected error for sample width mismatch")
	}
}

func TestStyleEncoderOutputWidth(t *testing.T) {
	enc, err := NewStyleEncoder(DefaultStyleEncoderConfig())
	if err != nil {
		t.Fatalf("default config should construct: %v", err)
	}

	image := make([]float32, enc.Channels*enc.ImageSize*enc.ImageSize)
	for i := range image {
		image[i] = float32(i%5) * 0.2
	}

	emb, err := enc.Encode(image)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(emb) != enc.OutputDim {
		t.Errorf("expected embedding width %d, got %d", enc.OutputDim, len(emb))
	}

	if _, err := enc.Encode(image[:len(image)-1]); err == nil {
		t.Error("expected error for wrong image length")
	}
}

func TestStyleEncoderMissingKeys(t *testing.T) {
	full := DefaultStyleEncoderConfig()
	for key := range full {
		cfg := full.Clone()
		delete(cfg, key)

		_, err := NewStyleEncoder(cfg)
		var mk *config.MissingKeyError
		if err == nil || !errors.As(err, &mk) || mk.Key != key {
			t.Errorf("key %q: expected MissingKeyError naming it, got %v", key, err)
		}
	}
}

func TestSimilaritySelfIsOne(t *testing.T) {
	v := []float32{0.5, -1.0, 2.0}
	if s := Similarity(v, v); math.Abs(float64(s-1.0)) > 1e-5 {
		t.Errorf("self-similarity should be 1, got %f", s)
	}
}
