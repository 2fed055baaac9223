// Package pocket is a minimal client for the Pocket v3 API: listing saved
// articles and archiving them.
package pocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects which of the two tool catalogs the client serves.
type Mode string

const (
	// ModeUnread lists unread articles only, reports item ids and
	// supports archiving.
	ModeUnread Mode = "unread"

	// ModeAll lists articles regardless of read state, without ids.
	// Archiving is not available.
	ModeAll Mode = "all"
)

// ParseMode converts a configuration value to a Mode. The empty string
// selects ModeUnread.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeUnread:
		return ModeUnread, nil
	case ModeAll:
		return ModeAll, nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeUnread, ModeAll)
}

// TracksItems reports whether the mode exposes item ids and archiving.
func (m Mode) TracksItems() bool {
	return m != ModeAll
}

// Credentials is the consumer key / access token pair sent with every request.
type Credentials struct {
	ConsumerKey string
	AccessToken string
}

// Valid reports whether both halves of the pair are set.
func (c Credentials) Valid() bool {
	return c.ConsumerKey != "" && c.AccessToken != ""
}

// Article is the flattened form of one upstream item.
type Article struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// item mirrors the subset of an upstream list entry that we read.
type item struct {
	ItemID        string `json:"item_id"`
	ResolvedTitle string `json:"resolved_title"`
	GivenTitle    string `json:"given_title"`
	ResolvedURL   string `json:"resolved_url"`
	Excerpt       string `json:"excerpt"`
}

func (it item) article(withID bool) Article {
	a := Article{
		Title:   it.ResolvedTitle,
		URL:     it.ResolvedURL,
		Excerpt: it.Excerpt,
	}
	if a.Title == "" {
		a.Title = it.GivenTitle
	}
	if withID {
		a.ID = it.ItemID
	}
	return a
}

// itemList decodes the upstream "list" field. Pocket sends an object keyed
// by item id, or an empty array when there is nothing to return. Entries
// keep document order.
type itemList []item

func (l *itemList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch tok {
	case nil:
		*l = nil
		return nil
	case json.Delim('['):
		for dec.More() {
			var it item
			if err := dec.Decode(&it); err != nil {
				return err
			}
			*l = append(*l, it)
		}
		return nil
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)

			var it item
			if err := dec.Decode(&it); err != nil {
				return fmt.Errorf("item %q: %w", key, err)
			}
			if it.ItemID == "" {
				it.ItemID = key
			}
			*l = append(*l, it)
		}
		return nil
	}
	return fmt.Errorf("unexpected list value %v", tok)
}

// getRequest is the body of POST /v3/get.
type getRequest struct {
	ConsumerKey string `json:"consumer_key"`
	AccessToken string `json:"access_token"`
	Count       int    `json:"count"`
	Sort        string `json:"sort"`
	DetailType  string `json:"detailType"`
	State       string `json:"state,omitempty"`
}

type getResponse struct {
	Status int      `json:"status"`
	List   itemList `json:"list"`
}

// sendRequest is the body of POST /v3/send.
type sendRequest struct {
	ConsumerKey string   `json:"consumer_key"`
	AccessToken string   `json:"access_token"`
	Actions     []action `json:"actions"`
}

type action struct {
	Action string `json:"action"`
	ItemID string `json:"item_id"`
}
