// Package notify delivers stored fun facts over SMS/MMS. Each recipient
// walks the same shuffled species order at their own pace, tracked by a
// persisted per-recipient index.
package notify

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/birdsays/birdfact-cli/internal/model"
)

// messageCreator is the slice of the Twilio REST API the sender needs.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Sender sends fact messages through Twilio.
type Sender struct {
	api  messageCreator
	from string
}

// NewSender creates a Sender from Twilio credentials.
func NewSender(accountSID, authToken, from string) *Sender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Sender{api: client.Api, from: from}
}

// Send delivers one fact to a recipient. The body is the fact plus the
// species page URL; the species image rides along as MMS media when
// present.
func (s *Sender) Send(to string, rec model.FactRecord) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	body := rec.Fact
	if rec.SpeciesPage != "" {
		body = fmt.Sprintf("%s\n%s", rec.Fact, rec.SpeciesPage)
	}
	params.SetBody(body)
	if rec.ImgURL != "" {
		params.SetMediaUrl([]string{rec.ImgURL})
	}

	if _, err := s.api.CreateMessage(params); err != nil {
		return eris.Wrapf(err, "notify: send message to %s", to)
	}
	return nil
}

// Tracker records which position in the species order each recipient has
// reached, persisted as JSON.
type Tracker struct {
	Index map[string]int
	path  string
}

// NewTracker loads the tracker file, creating it when absent.
func NewTracker(path string) (*Tracker, error) {
	t := &Tracker{Index: make(map[string]int), path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "notify: read tracker %s", path)
		}
		return t, t.Save()
	}
	if err := json.Unmarshal(data, &t.Index); err != nil {
		return nil, eris.Wrapf(err, "notify: parse tracker %s", path)
	}
	return t, nil
}

// Save persists the tracker.
func (t *Tracker) Save() error {
	data, err := json.Marshal(t.Index)
	if err != nil {
		return eris.Wrap(err, "notify: marshal tracker")
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return eris.Wrapf(err, "notify: write tracker %s", t.path)
	}
	return nil
}

// LoadOrder returns the persisted shuffled species order, creating and
// persisting a fresh shuffle when the file does not exist. The shuffle
// is fixed once written so every recipient sees the same sequence.
func LoadOrder(path string, species []string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var order []string
		if err := json.Unmarshal(data, &order); err != nil {
			return nil, eris.Wrapf(err, "notify: parse order %s", path)
		}
		return order, nil
	}
	if !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "notify: read order %s", path)
	}

	order := make([]string, len(species))
	copy(order, species)
	sort.Strings(order)
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	data, err = json.Marshal(order)
	if err != nil {
		return nil, eris.Wrap(err, "notify: marshal order")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, eris.Wrapf(err, "notify: write order %s", path)
	}
	return order, nil
}

// SendNext sends each recipient the next fact in the order and advances
// their index. Recipients who have exhausted the order, or whose next
// species has no stored fact, are skipped. Send failures are logged and
// do not advance the recipient.
func SendNext(sender *Sender, tracker *Tracker, order []string, facts map[string]model.FactRecord, recipients []string) error {
	for _, to := range recipients {
		pos := tracker.Index[to]
		if pos >= len(order) {
			zap.L().Info("recipient has received every fact", zap.String("to", to))
			continue
		}
		species := order[pos]
		rec, ok := facts[species]
		if !ok {
			zap.L().Warn("no stored fact for next species, skipping recipient",
				zap.String("to", to),
				zap.String("species", species))
			continue
		}

		if err := sender.Send(to, rec); err != nil {
			zap.L().Error("send failed", zap.String("to", to), zap.Error(err))
			continue
		}
		tracker.Index[to]++
		zap.L().Info("fact sent", zap.String("to", to), zap.String("species", species))
	}
	return tracker.Save()
}
