package main

import (
	"crypto/rand"
	"strings"
	"time"
)

const (
	statusWaiting = "waiting"
	statusRunning = "running"

	joinCodeLength = 6
	// Excludes easily-confused characters (I, O, 0, 1) so codes can be read
	// aloud or copied from another phone's screen.
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	authTokenLength   = 12
	authTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

// Game is one session document, keyed by join code. Status only ever moves
// waiting -> running; a game with zero players is eligible for deletion.
type Game struct {
	JoinCode       string   `bson:"joinCode" json:"joinCode"`
	Players        []Player `bson:"players" json:"players"`
	Timer          int      `bson:"timer" json:"timer"`
	EndTime        int64    `bson:"endTime" json:"endTime"`
	OwnerAuthToken string   `bson:"ownerAuthToken" json:"ownerAuthToken"`
	Status         string   `bson:"status" json:"status"`
}

// Player's auth token doubles as reconnect identity: it is the only credential
// tying later actions (start, infection updates, leave) back to a seat.
type Player struct {
	Name             string            `bson:"name" json:"name"`
	ProfilePic       int               `bson:"profilePic" json:"profilePic"`
	AuthToken        string            `bson:"authToken" json:"authToken"`
	Status           bool              `bson:"status" json:"status"`
	PushSubscription *PushSubscription `bson:"pushSubscription,omitempty" json:"pushSubscription,omitempty"`
}

// PushSubscription is the blob handed over by the browser's push manager.
// Stored as-is and passed through to the delivery provider.
type PushSubscription struct {
	Endpoint string               `bson:"endpoint" json:"endpoint"`
	Keys     PushSubscriptionKeys `bson:"keys" json:"keys"`
}

type PushSubscriptionKeys struct {
	P256dh string `bson:"p256dh" json:"p256dh"`
	Auth   string `bson:"auth" json:"auth"`
}

// StartResult reports the outcome of starting a game: who was picked as the
// first infected, and when the round ends (0 for untimed games).
type StartResult struct {
	FirstInfected Player
	EndTime       int64
}

func newGame(timerMinutes int) *Game {
	return &Game{
		JoinCode:       newJoinCode(),
		Players:        []Player{},
		Timer:          timerMinutes,
		EndTime:        0,
		OwnerAuthToken: newAuthToken(),
		Status:         statusWaiting,
	}
}

// randomString draws from crypto/rand. Both alphabets have power-of-two
// lengths, so the byte modulo stays uniform.
func randomString(alphabet string, length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(out)
}

func newJoinCode() string {
	return randomString(joinCodeAlphabet, joinCodeLength)
}

func newAuthToken() string {
	return randomString(authTokenAlphabet, authTokenLength)
}

// normalizeJoinCode makes join codes case-insensitive at the storage boundary.
func normalizeJoinCode(joinCode string) string {
	return strings.ToUpper(joinCode)
}

// endTimeFor computes the absolute deadline in epoch milliseconds, with 0
// meaning untimed. The 0 sentinel is part of the wire contract with clients.
func endTimeFor(timerMinutes int, now time.Time) int64 {
	if timerMinutes <= 0 {
		return 0
	}
	return now.Add(time.Duration(timerMinutes) * time.Minute).UnixMilli()
}

func (g *Game) playerByAuthToken(authToken string) *Player {
	for i := range g.Players {
		if g.Players[i].AuthToken == authToken {
			return &g.Players[i]
		}
	}
	return nil
}

// clone returns a deep copy so callers never share memory with the store.
func (g *Game) clone() *Game {
	dup := *g
	dup.Players = make([]Player, len(g.Players))
	for i, p := range g.Players {
		if p.PushSubscription != nil {
			sub := *p.PushSubscription
			p.PushSubscription = &sub
		}
		dup.Players[i] = p
	}
	return &dup
}
