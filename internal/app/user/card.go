package user

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Card is one permissible vote value. A deck may mix numbers (1, 2, 0.5) and
// sentinel tokens ("?", "coffee"); numbers travel as JSON numbers and tokens as
// JSON strings. Card is comparable with ==.
type Card struct {
	text    string
	numeric bool
}

// NumberCard returns a numeric card.
func NumberCard(n float64) Card {
	return Card{text: strconv.FormatFloat(n, 'f', -1, 64), numeric: true}
}

// TokenCard returns a sentinel card such as "?".
func TokenCard(token string) Card {
	return Card{text: token}
}

// DefaultDeck is used when a room is created without an explicit card list.
func DefaultDeck() []Card {
	return []Card{
		NumberCard(0), NumberCard(1), NumberCard(2), NumberCard(3), NumberCard(5),
		NumberCard(8), NumberCard(13), NumberCard(21), TokenCard("?"),
	}
}

// IsNumber reports whether the card is numeric.
func (c Card) IsNumber() bool { return c.numeric }

// IsZero reports whether c is the zero Card, which is never a valid deck entry.
func (c Card) IsZero() bool { return c.text == "" }

// Float returns the numeric value of the card.
func (c Card) Float() (float64, bool) {
	if !c.numeric {
		return 0, false
	}
	f, err := strconv.ParseFloat(c.text, 64)
	return f, err == nil
}

func (c Card) String() string { return c.text }

// MarshalJSON encodes numbers bare and tokens quoted.
func (c Card) MarshalJSON() ([]byte, error) {
	if c.numeric {
		return []byte(c.text), nil
	}
	return json.Marshal(c.text)
}

// UnmarshalJSON accepts a JSON number or a non-empty JSON string.
func (c *Card) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errors.New("card must not be null")
	}

	if data[0] == '"' {
		var token string
		if err := json.Unmarshal(data, &token); err != nil {
			return err
		}
		if token == "" {
			return errors.New("card token must not be empty")
		}
		*c = TokenCard(token)
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("card must be a number or a string: %w", err)
	}
	*c = NumberCard(f)
	return nil
}
