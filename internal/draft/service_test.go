package draft

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"club_sales/internal/catalog"
	"club_sales/internal/clients"
	"club_sales/internal/sales"
	"club_sales/internal/session"
)

// scriptedCatalog devuelve una respuesta por cada fetch, en orden.
type scriptedCatalog struct {
	mu      sync.Mutex
	fetches []func() ([]catalog.Product, error)
}

func (s *scriptedCatalog) push(fn func() ([]catalog.Product, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, fn)
}

func (s *scriptedCatalog) FetchCatalog(ctx context.Context, token, clubID string) ([]catalog.Product, error) {
	s.mu.Lock()
	if len(s.fetches) == 0 {
		s.mu.Unlock()
		return nil, errors.New("unexpected catalog fetch")
	}
	fn := s.fetches[0]
	s.fetches = s.fetches[1:]
	s.mu.Unlock()
	return fn()
}

func staticCatalog(products ...catalog.Product) *scriptedCatalog {
	s := &scriptedCatalog{}
	for i := 0; i < 16; i++ {
		s.push(func() ([]catalog.Product, error) { return products, nil })
	}
	return s
}

type stubDirectory struct {
	record *clients.Record
	err    error
	calls  int
}

func (s *stubDirectory) Lookup(ctx context.Context, token, clientID string) (*clients.Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

type stubGateway struct {
	mu       sync.Mutex
	lastSale *sales.Sale
	created  *sales.CreatedSale
	err      error
}

func (s *stubGateway) Submit(ctx context.Context, token string, sale *sales.Sale) (*sales.CreatedSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSale = sale
	if s.err != nil {
		return nil, s.err
	}
	return s.created, nil
}

func newTestService(t *testing.T, cat CatalogClient, dir ClientDirectory, gw SalesGateway) *Service {
	t.Helper()
	if cat == nil {
		cat = staticCatalog(sealedProduct("p1", "Proteína", 50), preparedProduct("p3", "Batido", 20))
	}
	if dir == nil {
		dir = &stubDirectory{record: &clients.Record{ID: "c1", Name: "Ana", TotalSpent: decimal.NewFromInt(500)}}
	}
	if gw == nil {
		gw = &stubGateway{created: &sales.CreatedSale{ID: "sale-1"}}
	}
	return NewService(NewLocalStorage(), cat, dir, gw, zaptest.NewLogger(t))
}

func testSession() session.Session {
	return session.Session{ClubID: "club-9", UserID: "cashier-1", Token: "tok"}
}

func TestOpenDraft(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	sess := testSession()

	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "club-9", d.ClubID)
	require.Len(t, d.Groups, 1)
	assert.Equal(t, "Grupo 1", d.Groups[0].Name)

	// El snapshot del catálogo queda disponible para búsquedas locales.
	results, err := svc.SearchProducts(sess, d.ID, "prote")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)

	// Consulta vacía: sin resultados, sin red.
	results, err = svc.SearchProducts(sess, d.ID, "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOpenDraft_CatalogFailure(t *testing.T) {
	failing := &scriptedCatalog{}
	failing.push(func() ([]catalog.Product, error) { return nil, errors.New("connection refused") })
	svc := newTestService(t, failing, nil, nil)

	d, err := svc.Open(context.Background(), testSession())
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Nil(t, d)
}

func TestDraftsAreScopedToTheClub(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	d, err := svc.Open(context.Background(), testSession())
	require.NoError(t, err)

	other := session.Session{ClubID: "club-otro", Token: "tok2"}
	_, err = svc.Get(other, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(testSession(), d.ID)
	assert.NoError(t, err)
}

func TestSelectProductUnknownID(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	sess := testSession()
	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)

	_, err = svc.SelectProduct(sess, d.ID, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestSubmit_HappyPathWithoutClient(t *testing.T) {
	gw := &stubGateway{created: &sales.CreatedSale{ID: "sale-1"}}
	svc := newTestService(t, nil, nil, gw)
	sess := testSession()

	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)

	_, err = svc.SelectProduct(sess, d.ID, "p3")
	require.NoError(t, err)
	_, err = svc.ConfirmPortions(sess, d.ID, 3, decimal.NewFromInt(20))
	require.NoError(t, err)
	_, err = svc.Advance(sess, d.ID)
	require.NoError(t, err)

	created, err := svc.Submit(context.Background(), sess, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "sale-1", created.ID)

	require.NotNil(t, gw.lastSale)
	assert.Equal(t, "club-9", gw.lastSale.ClubID)
	assert.Nil(t, gw.lastSale.ClientID, "sin cliente adjunto el payload lleva client_id null")
	assert.True(t, gw.lastSale.Total.Equal(decimal.NewFromInt(60)))
	require.Len(t, gw.lastSale.ItemGroups, 1)
	require.Len(t, gw.lastSale.ItemGroups[0].Items, 1)
	assert.Equal(t, "prepared", gw.lastSale.ItemGroups[0].Items[0].SellType)

	// El borrador se descarta al enviar.
	_, err = svc.Get(sess, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmit_OnlyOnConfirmationStep(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	sess := testSession()
	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), sess, d.ID)
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestSubmit_FailureKeepsDraft(t *testing.T) {
	gw := &stubGateway{err: errors.New("boom")}
	svc := newTestService(t, nil, nil, gw)
	sess := testSession()

	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)
	_, err = svc.SelectProduct(sess, d.ID, "p1")
	require.NoError(t, err)
	_, err = svc.Advance(sess, d.ID)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), sess, d.ID)
	assert.ErrorIs(t, err, ErrUpstream)

	// El estado queda intacto para reintentar.
	kept, err := svc.Get(sess, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StepConfirmation, kept.Step)
	assert.Equal(t, 1, kept.ItemCount())
}

func TestAttachClient(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	sess := testSession()

	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)
	_, err = svc.SelectProduct(sess, d.ID, "p1")
	require.NoError(t, err)
	_, err = svc.Advance(sess, d.ID)
	require.NoError(t, err)

	updated, err := svc.AttachClient(context.Background(), sess, d.ID, "c1")
	require.NoError(t, err)
	require.NotNil(t, updated.Client)
	assert.Equal(t, "Ana", updated.Client.Name)

	updated, err = svc.DetachClient(sess, d.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.Client)
}

// TestGetReturnsDetachedCopy: mutar lo que devuelve el servicio no toca el
// estado guardado.
func TestGetReturnsDetachedCopy(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	sess := testSession()
	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)
	_, err = svc.SelectProduct(sess, d.ID, "p1")
	require.NoError(t, err)

	snap, err := svc.Get(sess, d.ID)
	require.NoError(t, err)
	snap.Groups[0].Name = "mutado"
	snap.Groups[0].Items[0].Quantity = 99
	snap.Groups[0].Items = append(snap.Groups[0].Items, &SaleItem{ID: "fake"})
	snap.Client = &AttachedClient{ID: "fake"}

	again, err := svc.Get(sess, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grupo 1", again.Groups[0].Name)
	require.Len(t, again.Groups[0].Items, 1)
	assert.Equal(t, 1, again.Groups[0].Items[0].Quantity)
	assert.Nil(t, again.Client)
}

// TestConcurrentReadsAndWrites: lecturas serializando a JSON en paralelo con
// mutaciones sobre el mismo borrador; bajo -race no debe haber carreras.
func TestConcurrentReadsAndWrites(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	sess := testSession()
	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			snap, err := svc.Get(sess, d.ID)
			if err != nil {
				return
			}
			if _, err := json.Marshal(snap); err != nil {
				return
			}
			_ = snap.Total()
		}
	}()
	for i := 0; i < 200; i++ {
		_, err := svc.SelectProduct(sess, d.ID, "p1")
		require.NoError(t, err)
		_, err = svc.CreateGroup(sess, d.ID)
		require.NoError(t, err)
	}
	<-done
}

// TestAttachClient_NoLookupWithoutValidDraft: un borrador inexistente o en el
// paso equivocado no debe costar una llamada al directorio.
func TestAttachClient_NoLookupWithoutValidDraft(t *testing.T) {
	dir := &stubDirectory{record: &clients.Record{ID: "c1", Name: "Ana"}}
	svc := newTestService(t, nil, dir, nil)
	sess := testSession()

	_, err := svc.AttachClient(context.Background(), sess, "missing", "c1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, dir.calls)

	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)
	_, err = svc.AttachClient(context.Background(), sess, d.ID, "c1")
	assert.ErrorIs(t, err, ErrWrongStep)
	assert.Equal(t, 0, dir.calls)
}

func TestAttachClient_NotFoundPassesThrough(t *testing.T) {
	svc := newTestService(t, nil, &stubDirectory{err: clients.ErrNotFound}, nil)
	sess := testSession()
	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)
	_, err = svc.SelectProduct(sess, d.ID, "p1")
	require.NoError(t, err)
	_, err = svc.Advance(sess, d.ID)
	require.NoError(t, err)

	_, err = svc.AttachClient(context.Background(), sess, d.ID, "ghost")
	assert.ErrorIs(t, err, clients.ErrNotFound)
}

// TestRefreshCatalog_StaleResponseDiscarded: una respuesta lenta de un
// refresh viejo no debe pisar el resultado de un refresh más nuevo.
func TestRefreshCatalog_StaleResponseDiscarded(t *testing.T) {
	oldCatalog := []catalog.Product{sealedProduct("p-old", "Vieja", 10)}
	freshCatalog := []catalog.Product{sealedProduct("p-new", "Nueva", 10)}

	started := make(chan struct{})
	release := make(chan struct{})

	cat := &scriptedCatalog{}
	cat.push(func() ([]catalog.Product, error) { return oldCatalog, nil }) // open
	cat.push(func() ([]catalog.Product, error) { // refresh 1, lento
		close(started)
		<-release
		return oldCatalog, nil
	})
	cat.push(func() ([]catalog.Product, error) { return freshCatalog, nil }) // refresh 2

	svc := newTestService(t, cat, nil, nil)
	sess := testSession()
	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.RefreshCatalog(context.Background(), sess, d.ID)
	}()
	<-started

	// El segundo refresh arranca después y termina primero.
	_, err = svc.RefreshCatalog(context.Background(), sess, d.ID)
	require.NoError(t, err)

	close(release)
	<-done

	results, err := svc.SearchProducts(sess, d.ID, "nueva")
	require.NoError(t, err)
	assert.Len(t, results, 1, "the newer refresh result must win")

	results, err = svc.SearchProducts(sess, d.ID, "vieja")
	require.NoError(t, err)
	assert.Empty(t, results, "the stale response must be discarded")
}

func TestCancelDiscardsDraft(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	sess := testSession()
	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(sess, d.ID))
	_, err = svc.Get(sess, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateItemQuantityAndPrice(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	sess := testSession()
	d, err := svc.Open(context.Background(), sess)
	require.NoError(t, err)

	updated, err := svc.SelectProduct(sess, d.ID, "p1")
	require.NoError(t, err)
	item := updated.ActiveGroup().Items[0]

	qty := 4
	price := decimal.NewFromInt(45)
	updated, err = svc.UpdateItem(sess, d.ID, updated.ActiveGroupID, item.ID, &qty, &price)
	require.NoError(t, err)
	assert.True(t, updated.Total().Equal(decimal.NewFromInt(180)))
	assert.True(t, updated.ActiveGroup().Items[0].CustomPrice)
}
