package netplay

// SeatMap assigns server user ids to local 1-based seat numbers. The local
// human is always seat 1; other users take seats 2..N in encounter order.
// Assignments are cached so they stay stable across snapshots even when the
// server reorders its player list.
type SeatMap struct {
	localUserID string
	seatByUser  map[string]int
	userBySeat  map[int]string
	nextSeat    int
}

// NewSeatMap pins the local human user to seat 1.
func NewSeatMap(localUserID string) *SeatMap {
	return &SeatMap{
		localUserID: localUserID,
		seatByUser:  map[string]int{localUserID: 1},
		userBySeat:  map[int]string{1: localUserID},
		nextSeat:    2,
	}
}

// Assign folds a snapshot's player list into the map, keeping every prior
// assignment and appending unseen users at the next free seat.
func (m *SeatMap) Assign(players []PlayerState) {
	for _, p := range players {
		if _, ok := m.seatByUser[p.UserID]; ok {
			continue
		}
		m.seatByUser[p.UserID] = m.nextSeat
		m.userBySeat[m.nextSeat] = p.UserID
		m.nextSeat++
	}
}

// SeatFor returns the local seat for a server user id.
func (m *SeatMap) SeatFor(userID string) (int, bool) {
	seat, ok := m.seatByUser[userID]
	return seat, ok
}

// UserFor returns the server user id holding a local seat.
func (m *SeatMap) UserFor(seat int) (string, bool) {
	id, ok := m.userBySeat[seat]
	return id, ok
}

// Len is the number of seated users.
func (m *SeatMap) Len() int { return len(m.seatByUser) }
