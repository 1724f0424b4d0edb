package notify

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/birdsays/birdfact-cli/internal/model"
)

type fakeAPI struct {
	sent    []*twilioApi.CreateMessageParams
	failAll bool
}

func (f *fakeAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	if f.failAll {
		return nil, errors.New("twilio down")
	}
	f.sent = append(f.sent, params)
	return &twilioApi.ApiV2010Message{}, nil
}

func TestSenderSend(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	s := &Sender{api: api, from: "+15550001111"}

	rec := model.FactRecord{
		Fact:        "Cardinals are berry good singers.",
		ImgURL:      "https://img.test/cardinal.jpg",
		SpeciesPage: "https://birds.test/norcar",
	}
	require.NoError(t, s.Send("+15550002222", rec))

	require.Len(t, api.sent, 1)
	sent := api.sent[0]
	assert.Equal(t, "+15550002222", *sent.To)
	assert.Equal(t, "+15550001111", *sent.From)
	assert.Equal(t, "Cardinals are berry good singers.\nhttps://birds.test/norcar", *sent.Body)
	assert.Equal(t, []string{"https://img.test/cardinal.jpg"}, *sent.MediaUrl)
}

func TestSenderSendWithoutOptionalFields(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	s := &Sender{api: api, from: "+15550001111"}

	require.NoError(t, s.Send("+15550002222", model.FactRecord{Fact: "Just a fact."}))

	require.Len(t, api.sent, 1)
	assert.Equal(t, "Just a fact.", *api.sent[0].Body)
	assert.Nil(t, api.sent[0].MediaUrl)
}

func TestTrackerRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "message_index.json")

	tr, err := NewTracker(path)
	require.NoError(t, err)
	assert.Empty(t, tr.Index)

	tr.Index["+15550002222"] = 3
	require.NoError(t, tr.Save())

	tr2, err := NewTracker(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tr2.Index["+15550002222"])
}

func TestLoadOrderStableAcrossLoads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "order.json")
	species := []string{"Northern Cardinal", "Blue Jay", "American Robin"}

	first, err := LoadOrder(path, species)
	require.NoError(t, err)
	assert.ElementsMatch(t, species, first)

	// A second load returns the persisted order even with a different
	// species slice.
	second, err := LoadOrder(path, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSendNext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tr, err := NewTracker(filepath.Join(dir, "idx.json"))
	require.NoError(t, err)
	tr.Index["+15550003333"] = 1

	api := &fakeAPI{}
	s := &Sender{api: api, from: "+15550001111"}

	order := []string{"Northern Cardinal", "Blue Jay"}
	facts := map[string]model.FactRecord{
		"Northern Cardinal": {Fact: "cardinal fact"},
		"Blue Jay":          {Fact: "jay fact"},
	}

	require.NoError(t, SendNext(s, tr, order, facts,
		[]string{"+15550002222", "+15550003333"}))

	require.Len(t, api.sent, 2)
	assert.Equal(t, "cardinal fact", *api.sent[0].Body)
	assert.Equal(t, "jay fact", *api.sent[1].Body)
	assert.Equal(t, 1, tr.Index["+15550002222"])
	assert.Equal(t, 2, tr.Index["+15550003333"])
}

func TestSendNextFailureDoesNotAdvance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tr, err := NewTracker(filepath.Join(dir, "idx.json"))
	require.NoError(t, err)

	api := &fakeAPI{failAll: true}
	s := &Sender{api: api, from: "+15550001111"}

	facts := map[string]model.FactRecord{"Northern Cardinal": {Fact: "f"}}
	require.NoError(t, SendNext(s, tr, []string{"Northern Cardinal"}, facts,
		[]string{"+15550002222"}))

	assert.Zero(t, tr.Index["+15550002222"])
}

func TestSendNextExhaustedRecipient(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tr, err := NewTracker(filepath.Join(dir, "idx.json"))
	require.NoError(t, err)
	tr.Index["+15550002222"] = 5

	api := &fakeAPI{}
	s := &Sender{api: api, from: "+15550001111"}

	require.NoError(t, SendNext(s, tr, []string{"Northern Cardinal"}, nil,
		[]string{"+15550002222"}))
	assert.Empty(t, api.sent)
	assert.Equal(t, 5, tr.Index["+15550002222"])
}
