package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Aashish23092/crlv-reader/dto"
	"github.com/Aashish23092/crlv-reader/utils/crlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTextProvider struct {
	texts map[string]string
	delay time.Duration

	mu      sync.Mutex
	active  int32
	maxSeen int32
	calls   int32
}

func (p *fakeTextProvider) ExtractText(ctx context.Context, name string, data []byte) (dto.DocumentText, error) {
	atomic.AddInt32(&p.calls, 1)
	n := atomic.AddInt32(&p.active, 1)
	defer atomic.AddInt32(&p.active, -1)

	p.mu.Lock()
	if n > p.maxSeen {
		p.maxSeen = n
	}
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	text, ok := p.texts[name]
	if !ok {
		return dto.DocumentText{}, errors.New("unreadable scan")
	}
	return dto.DocumentText{Text: text, Source: SourceTextLayer}, nil
}

func newTestService(p TextProvider, workers int) *CRLVService {
	return NewCRLVService(p, crlv.NewEngine(crlv.DefaultConfig()), workers)
}

func TestProcessBatch_CoalescesPages(t *testing.T) {
	provider := &fakeTextProvider{texts: map[string]string{
		"frente.pdf": "RENAVAM 01234567890",
		"verso.pdf":  "RENAVAM 01234567890\nPLACA ABC1234",
		"outro.pdf":  "RENAVAM 99887766554",
	}}
	svc := newTestService(provider, 2)

	inputs := []dto.DocumentInput{
		{Name: "frente.pdf", Data: []byte("x")},
		{Name: "verso.pdf", Data: []byte("x")},
		{Name: "outro.pdf", Data: []byte("x")},
	}
	resp, err := svc.ProcessBatch(context.Background(), inputs, map[string]string{
		dto.ExtraCenter:     "MP01",
		dto.ExtraManagement: "",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.BatchID)
	assert.False(t, resp.Cancelled)
	assert.Equal(t, 3, resp.RecordCount)
	assert.Equal(t, 2, resp.VehicleCount)
	assert.Empty(t, resp.Failures)

	require.Len(t, resp.Documents, 3)
	for i, doc := range resp.Documents {
		assert.Equal(t, inputs[i].Name, doc.DocumentID)
		assert.Equal(t, SourceTextLayer, doc.TextSource)
	}

	first := resp.Vehicles[0]
	assert.Equal(t, "01234567890", first.Fields.Get(dto.FieldRenavam))
	assert.Equal(t, "ABC1-234", first.Fields.Get(dto.FieldPlate))
	assert.Equal(t, []string{"frente.pdf", "verso.pdf"}, first.Sources)
	assert.Equal(t, map[string]string{dto.ExtraCenter: "MP01"}, first.Extras)

	assert.Equal(t, "99887766554", resp.Vehicles[1].Fields.Get(dto.FieldRenavam))
}

func TestProcessBatch_FailureDoesNotAbort(t *testing.T) {
	provider := &fakeTextProvider{texts: map[string]string{
		"ok.pdf": "RENAVAM 01234567890",
	}}
	svc := newTestService(provider, 4)

	resp, err := svc.ProcessBatch(context.Background(), []dto.DocumentInput{
		{Name: "ok.pdf", Data: []byte("x")},
		{Name: "borrado.jpg", Data: []byte("x")},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.RecordCount)
	assert.Equal(t, 1, resp.VehicleCount)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "borrado.jpg", resp.Failures[0].DocumentID)
	assert.Contains(t, resp.Failures[0].Error, "unreadable scan")

	require.Len(t, resp.Documents, 2)
	assert.Nil(t, resp.Documents[1].Record)
	assert.NotNil(t, resp.Documents[1].MissingFields)
}

// panickingProvider blows up on one document, the way a decoder bug would.
type panickingProvider struct {
	fakeTextProvider
	bad string
}

func (p *panickingProvider) ExtractText(ctx context.Context, name string, data []byte) (dto.DocumentText, error) {
	if name == p.bad {
		panic("decoder blew up on " + name)
	}
	return p.fakeTextProvider.ExtractText(ctx, name, data)
}

func TestProcessBatch_PanicIsRecordedAsFailure(t *testing.T) {
	provider := &panickingProvider{
		fakeTextProvider: fakeTextProvider{texts: map[string]string{
			"good.pdf": "RENAVAM 01234567890\nPLACA ABC1234",
		}},
		bad: "bad.pdf",
	}
	svc := newTestService(provider, 2)

	resp, err := svc.ProcessBatch(context.Background(), []dto.DocumentInput{
		{Name: "good.pdf", Data: []byte("x")},
		{Name: "bad.pdf", Data: []byte("x")},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.RecordCount)
	require.Len(t, resp.Vehicles, 1)
	assert.Equal(t, "ABC1-234", resp.Vehicles[0].Fields.Get(dto.FieldPlate))

	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "bad.pdf", resp.Failures[0].DocumentID)
	assert.Contains(t, resp.Failures[0].Error, "decoder blew up on bad.pdf")

	require.Len(t, resp.Documents, 2)
	bad := resp.Documents[1]
	assert.Nil(t, bad.Record)
	assert.ErrorIs(t, bad.Err, dto.ErrExtractionFailed)
	assert.NotNil(t, bad.MissingFields)
}

func TestProcessBatch_InlineTextSkipsAcquisition(t *testing.T) {
	provider := &fakeTextProvider{texts: map[string]string{}}
	svc := newTestService(provider, 1)

	resp, err := svc.ProcessBatch(context.Background(), []dto.DocumentInput{
		{Name: "ocr-externo", Text: "RENAVAM 01234567890\nPLACA ABC1234"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(0), atomic.LoadInt32(&provider.calls))
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, SourceInline, resp.Documents[0].TextSource)
	assert.Equal(t, "ABC1-234", resp.Vehicles[0].Fields.Get(dto.FieldPlate))
}

func TestProcessBatch_BoundedWorkers(t *testing.T) {
	texts := map[string]string{}
	var inputs []dto.DocumentInput
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		texts[name] = "RENAVAM 01234567890"
		inputs = append(inputs, dto.DocumentInput{Name: name, Data: []byte("x")})
	}
	provider := &fakeTextProvider{texts: texts, delay: 20 * time.Millisecond}
	svc := newTestService(provider, 2)

	resp, err := svc.ProcessBatch(context.Background(), inputs, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, resp.RecordCount)
	assert.Equal(t, 1, resp.VehicleCount)
	assert.LessOrEqual(t, provider.maxSeen, int32(2))
	assert.Len(t, resp.Vehicles[0].Sources, 6)
}

func TestProcessBatch_CancelledBeforeStart(t *testing.T) {
	provider := &fakeTextProvider{texts: map[string]string{"a": "RENAVAM 01234567890"}}
	svc := newTestService(provider, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.ProcessBatch(ctx, []dto.DocumentInput{{Name: "a", Data: []byte("x")}}, nil)
	require.NoError(t, err)

	assert.True(t, resp.Cancelled)
	assert.Empty(t, resp.Documents)
	assert.Empty(t, resp.Vehicles)
	assert.Equal(t, 0, resp.RecordCount)
}

func TestProcessBatch_CancelKeepsInFlightWork(t *testing.T) {
	texts := map[string]string{}
	var inputs []dto.DocumentInput
	for _, name := range []string{"a", "b", "c", "d"} {
		texts[name] = "RENAVAM 01234567890"
		inputs = append(inputs, dto.DocumentInput{Name: name, Data: []byte("x")})
	}
	provider := &fakeTextProvider{texts: texts, delay: 100 * time.Millisecond}
	svc := newTestService(provider, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	resp, err := svc.ProcessBatch(ctx, inputs, nil)
	require.NoError(t, err)

	assert.True(t, resp.Cancelled)
	require.NotEmpty(t, resp.Documents)
	assert.Less(t, len(resp.Documents), len(inputs))
	for _, doc := range resp.Documents {
		assert.Empty(t, doc.Error)
		assert.NotNil(t, doc.Record)
	}
	assert.Equal(t, len(resp.Documents), resp.RecordCount)
}

func TestProcessBatch_Empty(t *testing.T) {
	svc := newTestService(nil, 1)

	_, err := svc.ProcessBatch(context.Background(), nil, nil)
	assert.ErrorIs(t, err, dto.ErrNoDocuments)
}

func TestProcessBatch_UnnamedDocuments(t *testing.T) {
	svc := newTestService(nil, 2)

	resp, err := svc.ProcessBatch(context.Background(), []dto.DocumentInput{
		{Text: "COR\nBRANCA"},
		{Text: "COR\nPRETA"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "documento-1", resp.Documents[0].DocumentID)
	assert.Equal(t, "documento-2", resp.Documents[1].DocumentID)
	assert.Equal(t, 2, resp.VehicleCount)
}

func TestExtractText(t *testing.T) {
	svc := newTestService(nil, 1)

	res := svc.ExtractText("colado", "RENAVAM 01234567890")
	require.NotNil(t, res.Record)
	assert.Equal(t, "colado", res.Record.DocumentID)
	assert.Equal(t, "01234567890", res.Record.Fields.Get(dto.FieldRenavam))
	assert.Contains(t, res.MissingFields, dto.FieldPlate)
	assert.NotContains(t, res.MissingFields, dto.FieldRenavam)

	empty := svc.ExtractText("vazio", "")
	require.NotNil(t, empty.Record)
	assert.Empty(t, empty.Error)
	assert.Equal(t, SourceInline, empty.TextSource)
	assert.Equal(t, dto.CanonicalFields, empty.MissingFields)
}

func TestProcessDocument_NoProviderNoText(t *testing.T) {
	svc := newTestService(nil, 1)

	res := svc.ProcessDocument(context.Background(), dto.DocumentInput{Name: "vazio.pdf"})
	assert.Nil(t, res.Record)
	assert.ErrorIs(t, res.Err, dto.ErrNoText)
	assert.Contains(t, res.Error, dto.ErrNoText.Error())
}

func TestApplyExtras(t *testing.T) {
	assert.Nil(t, applyExtras(nil))
	assert.Nil(t, applyExtras(map[string]string{dto.ExtraCenter: "  "}))
	assert.Equal(t,
		map[string]string{dto.ExtraCostCenter: "CC10"},
		applyExtras(map[string]string{dto.ExtraCostCenter: "CC10", dto.ExtraDivision: ""}))
}
