package chatbot

import (
	"fmt"
	"strings"

	"github.com/oggyb/anonchat/internal/matchmaking"
)

const (
	msgWelcome          = "👋 Welcome to the anonymous chat! Fill in your profile and find someone to talk to."
	msgMainMenu         = "Main menu"
	msgAskName          = "✏️ Enter your name:"
	msgAskAge           = "📅 Choose your age:"
	msgAskGender        = "⚧ Choose your gender:"
	msgAskCity          = "🏙 Choose your city:"
	msgAskCityManual    = "Type your city:"
	msgProfileSaved     = "✅ Profile saved!"
	msgBadName          = "❌ The name may contain letters only, up to 50 characters."
	msgBadCity          = "❌ The city may contain letters and spaces only, up to 30 characters."
	msgFilterMenu       = "What do you want to change?"
	msgAskFilterGender  = "⚧ Who are you looking for?"
	msgAskFilterMin     = "Minimum age (18-100):"
	msgAskFilterMax     = "Maximum age (18-100):"
	msgAskFilterCity    = "City (or 'any'):"
	msgNotNumber        = "Enter a number!"
	msgAgeRange         = "From 18 to 100."
	msgMaxBelowMin      = "The maximum must not be below the minimum."
	msgFilterSaved      = "✅ Filters updated."
	msgSearchStarted    = "🔍 Looking for a companion..."
	msgProfileFirst     = "❌ Fill in your profile first!"
	msgAlreadyChatting  = "You are in a chat!"
	msgAlreadySearching = "You are already searching!"
	msgSearchStopped    = "Search stopped."
	msgNotSearching     = "You are not searching."
	msgYouLeft          = "You left the chat."
	msgNotInChat        = "You are not in a chat."
	msgCompanionLeft    = "😔 Your companion left the chat."
	msgSearchFailed     = "⚠️ Search stopped because of an error. Please try again later."
	msgMatchedInitiator = "🎉 Companion found! Say hi 👋"
	msgMatchedWaiting   = "🎉 Companion found! Wait for the first message or say hi."
	msgDeliveryFailed   = "⚠️ Your companion is unreachable, the chat is over."
	msgNotDelivered     = "⚠️ Message not delivered, please try again."
	msgUnknownCommand   = "Unknown command. Use /start"
	msgUseMenu          = "Use the menu buttons."
	msgTryAgain         = "⚠️ Something went wrong. Please try again."
)

func msgEscalated(f matchmaking.Filter) string {
	return fmt.Sprintf("⏳ Nobody matched yet, widening the search: age up to %d, any gender, any city.", f.MaxAge)
}

func formatProfile(u matchmaking.User) string {
	p := u.Profile
	var b strings.Builder
	b.WriteString("👤 Your profile\n")
	fmt.Fprintf(&b, "Name: %s\n", orDash(p.Name))
	if p.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", p.Age)
	} else {
		b.WriteString("Age: -\n")
	}
	fmt.Fprintf(&b, "Gender: %s\n", orDash(p.Gender))
	fmt.Fprintf(&b, "City: %s\n\n", orDash(p.City))

	f := u.Filter
	b.WriteString("⚙️ Looking for\n")
	fmt.Fprintf(&b, "Gender: %s\nAge: %d-%d\nCity: %s", f.Gender, f.MinAge, f.MaxAge, f.City)
	return b.String()
}

func formatStats(s matchmaking.Stats) string {
	return fmt.Sprintf("📊 Searching: %d\nLive chats: %d", s.Searching, s.Pairings)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
