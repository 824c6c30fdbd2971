package domain

import "math/rand"

// DeckSize is the fixed multiset size of a full draw pile.
const DeckSize = 45

// NewDeck returns the full, unshuffled card multiset: five 1s, four each of
// 2/3/5/8, four backward-only 4s, four split 7s, four dual 10s, four dual
// 11s, four 12s and five SORRY cards.
func NewDeck() []Card {
	specs := []struct {
		count     int
		primary   int
		secondary int
		dual      bool
		label     string
	}{
		{5, 1, 0, false, "1"},
		{4, 2, 0, false, "2"},
		{4, 3, 0, false, "3"},
		{4, -4, 0, false, "4"},
		{4, 5, 0, false, "5"},
		{4, 7, 0, false, "7"},
		{4, 8, 0, false, "8"},
		{4, 10, -1, true, "10"},
		{4, 11, 0, true, "11"},
		{4, 12, 0, false, "12"},
		{5, 0, 4, false, LabelSorry},
	}

	deck := make([]Card, 0, DeckSize)
	id := 0
	for _, s := range specs {
		for i := 0; i < s.count; i++ {
			deck = append(deck, Card{
				ID:        id,
				Primary:   s.primary,
				Secondary: s.secondary,
				Dual:      s.dual,
				Label:     s.label,
			})
			id++
		}
	}
	return deck
}

// Deck is a draw pile with a discard; it reshuffles the discard back in when
// the pile runs dry.
type Deck struct {
	rng     *rand.Rand
	pile    []Card
	discard []Card
}

// NewShuffledDeck builds a shuffled draw pile from the full multiset.
func NewShuffledDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng, pile: NewDeck()}
	d.shuffle(d.pile)
	return d
}

func (d *Deck) shuffle(cards []Card) {
	d.rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
}

// Draw takes the next card, recycling the discard first if needed.
func (d *Deck) Draw() Card {
	if len(d.pile) == 0 {
		d.pile = d.discard
		d.discard = nil
		d.shuffle(d.pile)
	}
	c := d.pile[0]
	d.pile = d.pile[1:]
	return c
}

// Discard puts a fully resolved card on the discard pile.
func (d *Deck) Discard(c Card) {
	d.discard = append(d.discard, c)
}

// ReturnToFront puts an unresolved card back so it is drawn next. Watchdog
// recovery uses this so recovery never loses cards from the multiset.
func (d *Deck) ReturnToFront(c Card) {
	d.pile = append([]Card{c}, d.pile...)
}

// Remaining is the number of cards left in the draw pile.
func (d *Deck) Remaining() int { return len(d.pile) }
