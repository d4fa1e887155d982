package ocr_test

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/ocr"
	"github.com/ProstoyVadila/ml-service/mocks"
)

var testImage = image.NewGray(image.Rect(0, 0, 100, 100))

func newBackend(name string) *mocks.MockOCRBackend {
	b := new(mocks.MockOCRBackend)
	b.On("Name").Return(name).Maybe()
	return b
}

// slowBackend sleeps before answering with a confident result.
type slowBackend struct {
	name  string
	delay time.Duration
}

func (s *slowBackend) Name() string                { return s.name }
func (s *slowBackend) ShouldSkip(image.Image) bool { return false }
func (s *slowBackend) Process(ctx context.Context, _ image.Image) domain.OCRResult {
	time.Sleep(s.delay)
	return domain.NewOCRResult(s.name, "late text", 0.99)
}

type panicBackend struct{}

func (panicBackend) Name() string                { return "Panicky" }
func (panicBackend) ShouldSkip(image.Image) bool { return false }
func (panicBackend) Process(context.Context, image.Image) domain.OCRResult {
	panic("engine crashed")
}

type skipPanicBackend struct{}

func (skipPanicBackend) Name() string                { return "SkipPanicky" }
func (skipPanicBackend) ShouldSkip(image.Image) bool { panic("size probe crashed") }
func (skipPanicBackend) Process(context.Context, image.Image) domain.OCRResult {
	return domain.NewOCRResult("SkipPanicky", "never used", 0.99)
}

func TestChain_ShouldSkipPanic_FallsThrough(t *testing.T) {
	b2 := newBackend("B2")
	b2.On("ShouldSkip", testImage).Return(false)
	b2.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B2", "замена масла", 0.8))

	chain := ocr.NewChain([]ocr.Link{{Backend: skipPanicBackend{}}, {Backend: b2}}, zaptest.NewLogger(t))

	var res domain.OCRResult
	require.NotPanics(t, func() { res = chain.Process(context.Background(), testImage) })
	assert.Equal(t, "B2", res.Engine)
	assert.Equal(t, 0.8, res.Confidence)
}

func TestChain_ShouldSkipPanic_LastLink(t *testing.T) {
	chain := ocr.NewChain([]ocr.Link{{Backend: skipPanicBackend{}}}, zaptest.NewLogger(t))

	var res domain.OCRResult
	require.NotPanics(t, func() { res = chain.Process(context.Background(), testImage) })
	assert.ErrorIs(t, res.Err, domain.ErrNoNextHandler)
	assert.Equal(t, "SkipPanicky", res.Engine)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestChain_FirstRejects_SecondAccepts(t *testing.T) {
	b1 := newBackend("B1")
	b2 := newBackend("B2")
	b1.On("ShouldSkip", testImage).Return(false)
	b1.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B1", "garbage", 0.3)).Once()
	b2.On("ShouldSkip", testImage).Return(false)
	b2.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B2", "замена масла", 0.8))

	chain := ocr.NewChain([]ocr.Link{{Backend: b1, Timeout: time.Second}, {Backend: b2, Timeout: time.Second}}, zaptest.NewLogger(t))
	res := chain.Process(context.Background(), testImage)

	require.NoError(t, res.Err)
	assert.Equal(t, "B2", res.Engine)
	assert.Equal(t, 0.8, res.Confidence)
	b1.AssertNumberOfCalls(t, "Process", 1)
}

func TestChain_FirstAcceptable_StopsChain(t *testing.T) {
	b1 := newBackend("B1")
	b2 := newBackend("B2")
	b1.On("ShouldSkip", testImage).Return(false)
	b1.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B1", "text", 0.6))

	chain := ocr.NewChain([]ocr.Link{{Backend: b1}, {Backend: b2}}, nil)
	res := chain.Process(context.Background(), testImage)

	assert.Equal(t, "B1", res.Engine)
	b2.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	b2.AssertNotCalled(t, "ShouldSkip", mock.Anything)
}

func TestChain_FirstTimesOut_SecondAccepts(t *testing.T) {
	b1 := &slowBackend{name: "Slow", delay: 200 * time.Millisecond}
	b2 := newBackend("B2")
	b2.On("ShouldSkip", testImage).Return(false)
	b2.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B2", "ok", 0.7))

	chain := ocr.NewChain([]ocr.Link{
		{Backend: b1, Timeout: 20 * time.Millisecond},
		{Backend: b2, Timeout: time.Second},
	}, zaptest.NewLogger(t))

	res := chain.Process(context.Background(), testImage)

	assert.Equal(t, "B2", res.Engine)
	assert.Equal(t, "ok", res.Text)
	assert.NotEqual(t, "late text", res.Text)
}

func TestChain_ErrorResultIsRejected(t *testing.T) {
	b1 := newBackend("B1")
	b2 := newBackend("B2")
	b1.On("ShouldSkip", testImage).Return(false)
	b1.On("Process", mock.Anything, testImage).Return(domain.OCRResult{Engine: "B1", Text: "x", Confidence: 0.9, Err: domain.ErrOCRFailed})
	b2.On("ShouldSkip", testImage).Return(false)
	b2.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B2", "ok", 0.61))

	res := ocr.NewChain([]ocr.Link{{Backend: b1}, {Backend: b2}}, nil).Process(context.Background(), testImage)

	assert.Equal(t, "B2", res.Engine)
	assert.NoError(t, res.Err)
}

func TestChain_PanicIsTreatedAsRejection(t *testing.T) {
	b2 := newBackend("B2")
	b2.On("ShouldSkip", testImage).Return(false)
	b2.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B2", "ok", 0.9))

	res := ocr.NewChain([]ocr.Link{
		{Backend: panicBackend{}, Timeout: time.Second},
		{Backend: b2},
	}, zaptest.NewLogger(t)).Process(context.Background(), testImage)

	assert.Equal(t, "B2", res.Engine)
}

func TestChain_SkipForwardsImage(t *testing.T) {
	b1 := newBackend("B1")
	b2 := newBackend("B2")
	b1.On("ShouldSkip", testImage).Return(true)
	b2.On("ShouldSkip", testImage).Return(false)
	b2.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B2", "ok", 0.9))

	res := ocr.NewChain([]ocr.Link{{Backend: b1}, {Backend: b2}}, nil).Process(context.Background(), testImage)

	assert.Equal(t, "B2", res.Engine)
	b1.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestChain_TerminalSkip_ReturnsEmptyResultWithOwnName(t *testing.T) {
	b1 := newBackend("B1")
	b1.On("ShouldSkip", testImage).Return(true)

	res := ocr.NewChain([]ocr.Link{{Backend: b1}}, nil).Process(context.Background(), testImage)

	assert.Equal(t, "B1", res.Engine)
	assert.Empty(t, res.Text)
	assert.Equal(t, 0.0, res.Confidence)
	assert.NoError(t, res.Err)
}

func TestChain_TerminalReject_ReturnsNoNextHandler(t *testing.T) {
	b1 := newBackend("B1")
	b2 := newBackend("B2")
	b1.On("ShouldSkip", testImage).Return(false)
	b1.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B1", "a", 0.1))
	b2.On("ShouldSkip", testImage).Return(false)
	b2.On("Process", mock.Anything, testImage).Return(domain.NewOCRResult("B2", "b", 0.2))

	res := ocr.NewChain([]ocr.Link{{Backend: b1}, {Backend: b2}}, nil).Process(context.Background(), testImage)

	assert.Equal(t, "B2", res.Engine)
	assert.ErrorIs(t, res.Err, domain.ErrNoNextHandler)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Empty(t, res.Text)
}

func TestChain_Empty(t *testing.T) {
	res := ocr.NewChain(nil, nil).Process(context.Background(), testImage)
	assert.ErrorIs(t, res.Err, domain.ErrEmptyChain)
}

func TestFactory_Build(t *testing.T) {
	_, err := ocr.NewFactory(time.Second, nil).Build()
	assert.ErrorIs(t, err, domain.ErrEmptyChain)

	chain, err := ocr.NewFactory(time.Second, nil).
		Add(newBackend("Tesseract"), 0).
		Add(newBackend("OCR_SPACE"), 5*time.Second).
		Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"Tesseract", "OCR_SPACE"}, chain.Engines())
}
