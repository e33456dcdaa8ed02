// Package conversation drives the per-customer messaging flow that
// collects reservation or takeout details. Transitions are pure; the
// Manager owns sessions and executes side effects.
package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taldoflemis/trattoria/menu"
	"github.com/taldoflemis/trattoria/store"
)

type Phase string

const (
	PhaseAwaitingKind      Phase = "awaiting_kind"
	PhaseAwaitingName      Phase = "awaiting_name"
	PhaseAwaitingPartySize Phase = "awaiting_party_size"
	PhaseAwaitingDate      Phase = "awaiting_date"
	PhaseAwaitingTime      Phase = "awaiting_time"
	PhaseAwaitingItems     Phase = "awaiting_items"
)

type Kind string

const (
	KindReservation Kind = "reservation"
	KindTakeout     Kind = "takeout"
)

// Session is one customer's progress through the flow. It lives only in
// memory and is dropped on the terminal transition.
type Session struct {
	Phase     Phase
	Kind      Kind
	Name      string
	PartySize int
	Date      string
	Time      string
}

// NewSession is the state every unseen sender starts in. The first
// message from a new sender is evaluated against the awaiting_kind rules
// in the same turn.
func NewSession() Session {
	return Session{Phase: PhaseAwaitingKind}
}

// Result of advancing a session by one inbound message. When Done is set
// the session must be discarded; Order, when non-nil, is the finalized
// record to persist (the caller fills in the sender's phone).
type Result struct {
	Session Session
	Reply   string
	Done    bool
	Order   *store.Order
}

var titleCaser = cases.Title(language.Spanish)

// Advance interprets one inbound message against the session's phase.
// It performs no I/O.
func Advance(s Session, input string, catalog *menu.Catalog) Result {
	text := strings.ToLower(strings.TrimSpace(input))

	// "menu" works from any phase and leaves the session untouched.
	if strings.Contains(text, "menu") || strings.Contains(text, "menú") {
		return Result{Session: s, Reply: menuReply(catalog)}
	}

	switch s.Phase {
	case PhaseAwaitingKind:
		switch {
		case strings.Contains(text, "reserva"):
			s.Kind = KindReservation
		case strings.Contains(text, "llevar"), strings.Contains(text, "pedido"):
			s.Kind = KindTakeout
		default:
			return Result{Session: s, Reply: replyAskKind}
		}
		s.Phase = PhaseAwaitingName
		return Result{Session: s, Reply: replyAskName}

	case PhaseAwaitingName:
		s.Name = titleCaser.String(text)
		if s.Kind == KindReservation {
			s.Phase = PhaseAwaitingPartySize
			return Result{Session: s, Reply: replyAskPartySize}
		}
		s.Phase = PhaseAwaitingTime
		return Result{Session: s, Reply: replyAskPickupTime}

	case PhaseAwaitingPartySize:
		size, err := strconv.Atoi(text)
		if err != nil {
			return Result{Session: s, Reply: replyPartySizeError}
		}
		s.PartySize = size
		s.Phase = PhaseAwaitingDate
		return Result{Session: s, Reply: replyAskDate}

	case PhaseAwaitingDate:
		s.Date = text
		s.Phase = PhaseAwaitingTime
		return Result{Session: s, Reply: replyAskTableTime}

	case PhaseAwaitingTime:
		s.Time = text
		if s.Kind == KindReservation {
			return Result{
				Session: s,
				Done:    true,
				Order:   reservationOrder(s),
				Reply:   reservationConfirmation(s),
			}
		}
		s.Phase = PhaseAwaitingItems
		return Result{Session: s, Reply: replyAskItems + "\n\n" + catalog.Listing()}

	case PhaseAwaitingItems:
		products := catalog.ParseItems(text)
		return Result{
			Session: s,
			Done:    true,
			Order:   takeoutOrder(s, products),
			Reply:   takeoutConfirmation(s, products),
		}
	}

	// Unreachable phase value: greet again without touching the session.
	return Result{Session: s, Reply: replyGreeting}
}

func reservationOrder(s Session) *store.Order {
	return &store.Order{
		Type:      store.TypeReservation,
		Name:      s.Name,
		Date:      s.Date,
		PartySize: s.PartySize,
		Time:      s.Time,
		Products:  []string{},
	}
}

func takeoutOrder(s Session, products []string) *store.Order {
	if products == nil {
		products = []string{}
	}
	return &store.Order{
		Type:     store.TypeTakeout,
		Name:     s.Name,
		Time:     s.Time,
		Products: products,
		Status:   store.StatusPending,
	}
}

const (
	replyGreeting       = "Hola! Would you like a *reserva* or a *pedido para llevar*?"
	replyAskKind        = "Would you like a *reserva* (table) or a *pedido para llevar* (takeout)?"
	replyAskName        = "Please reply with *just your full name*, nothing else."
	replyAskPartySize   = "How many people is the reservation for?"
	replyPartySizeError = "Please reply with just the number of people. (E.g.: 3)"
	replyAskDate        = "What date would you like to book? (E.g.: 2025-05-14)"
	replyAskTableTime   = "What time would you like the table? (E.g.: 14:00)"
	replyAskPickupTime  = "What time will you pick up your order? (E.g.: 14:00)"
	replyAskItems       = "Reply with the *numbers* of the dishes you want, separated by commas.\nE.g.: 1, 2, 2, 5"
)

func menuReply(catalog *menu.Catalog) string {
	return "Menu of the day – reply *pedido* or *reserva* to get started:\n\n" + catalog.Listing()
}

func reservationConfirmation(s Session) string {
	return fmt.Sprintf(
		"Reservation confirmed!\n\nName: %s\nDate: %s\nParty size: %d\nTime: %s",
		s.Name, s.Date, s.PartySize, s.Time,
	)
}

func takeoutConfirmation(s Session, products []string) string {
	reply := fmt.Sprintf("Takeout order confirmed!\n\nName: %s\nPickup time: %s\nItems:", s.Name, s.Time)
	if len(products) == 0 {
		return reply + " (none)"
	}
	return reply + "\n- " + strings.Join(products, "\n- ")
}
