package dreamer

import (
	"fmt"
	"math"

	"github.com/openfluke/tetramind/config"
	"github.com/openfluke/tetramind/nn"
)

// StyleEncoder embeds images into a style space: a patch-embedding
// convolution followed by self-attention over the patch sequence and a
// dense projection of the mean-pooled patches.
type StyleEncoder struct {
	ImageSize  int
	PatchSize  int
	Channels   int
	EmbedDim   int
	OutputDim  int
	numPatches int

	patchEmbed nn.LayerConfig
	attention  nn.LayerConfig
	projection *nn.Network
}

// DefaultStyleEncoderConfig returns the default hyperparameters for
// StyleEncoder.
func DefaultStyleEncoderConfig() config.Config {
	return config.Config{
		"image_size":     16,
		"patch_size":     4,
		"input_channels": 1,
		"embed_dim":      32,
		"num_heads":      4,
		"output_dim":     24,
	}
}

// NewStyleEncoder constructs the composite from cfg. Construction fails on
// the first missing key.
func NewStyleEncoder(cfg config.Config) (*StyleEncoder, error) {
	imageSize, err := cfg.Int("image_size")
	if err != nil {
		return nil, err
	}
	patchSize, err := cfg.Int("patch_size")
	if err != nil {
		return nil, err
	}
	channels, err := cfg.Int("input_channels")
	if err != nil {
		return nil, err
	}
	embedDim, err := cfg.Int("embed_dim")
	if err != nil {
		return nil, err
	}
	numHeads, err := cfg.Int("num_heads")
	if err != nil {
		return nil, err
	}
	outputDim, err := cfg.Int("output_dim")
	if err != nil {
		return nil, err
	}

	// Patch embedding: convolution with kernel == stride == patch size
	patchEmbed := nn.InitConv2DLayer(
		imageSize, imageSize, channels,
		patchSize, patchSize, 0, embedDim,
		nn.ActivationLinear,
	)
	patchesPerSide := imageSize / patchSize

	return &StyleEncoder{
		ImageSize:  imageSize,
		PatchSize:  patchSize,
		Channels:   channels,
		EmbedDim:   embedDim,
		OutputDim:  outputDim,
		numPatches: patchesPerSide * patchesPerSide,
		patchEmbed: patchEmbed,
		attention:  nn.InitMultiHeadAttentionLayer(embedDim, numHeads),
		projection: nn.NewSequential(embedDim, nn.InitDenseLayer(embedDim, outputDim, nn.ActivationTanh)),
	}, nil
}

// Encode embeds one image of [channels * imageSize * imageSize] values into
// an OutputDim style vector.
func (s *StyleEncoder) Encode(image []float32) ([]float32, error) {
	expected := s.Channels * s.ImageSize * s.ImageSize
	if len(image) != expected {
		return nil, fmt.Errorf("image length %d, expected %d", len(image), expected)
	}

	// Conv output is [embedDim][ph][pw]; attention wants [patch][embedDim]
	conv := nn.Conv2DForward(&s.patchEmbed, image, 1)
	patches := make([]float32, s.numPatches*s.EmbedDim)
	for d := 0; d < s.EmbedDim; d++ {
		for p := 0; p < s.numPatches; p++ {
			patches[p*s.EmbedDim+d] = conv[d*s.numPatches+p]
		}
	}

	attended := nn.AttentionForward(&s.attention, patches)

	// Mean-pool over the patch sequence
	pooled := make([]float32, s.EmbedDim)
	for p := 0; p < s.numPatches; p++ {
		for d := 0; d < s.EmbedDim; d++ {
			pooled[d] += attended[p*s.EmbedDim+d]
		}
	}
	for d := range pooled {
		pooled[d] /= float32(s.numPatches)
	}

	return s.projection.Forward(pooled), nil
}

// Similarity returns the cosine similarity of two style embeddings.
func Similarity(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(na))) * float32(math.Sqrt(float64(nb))))
}
