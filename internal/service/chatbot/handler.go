package chatbot

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/oggyb/anonchat/internal/matchmaking"
	"github.com/oggyb/anonchat/internal/telegram"
)

// Engine is the part of the matchmaking engine the bot drives.
type Engine interface {
	User(ctx context.Context, id int64) (matchmaking.User, error)
	UpdateProfile(ctx context.Context, id int64, p matchmaking.Profile) error
	UpdateFilter(ctx context.Context, id int64, u matchmaking.FilterUpdate) (matchmaking.Filter, error)
	OnSearchRequested(ctx context.Context, id int64) error
	OnSearchCancelled(ctx context.Context, id int64) (bool, error)
	OnChatExit(ctx context.Context, id int64) (bool, error)
	OnUserMessage(ctx context.Context, id int64, text string) error
	Stats(ctx context.Context) (matchmaking.Stats, error)
}

// Handler turns Telegram updates into engine operations.
type Handler struct {
	engine  Engine
	sender  Sender
	log     *slog.Logger
	forms   *forms
	adminID int64
}

func NewHandler(engine Engine, sender Sender, log *slog.Logger, adminID int64) *Handler {
	return &Handler{
		engine:  engine,
		sender:  sender,
		log:     log,
		forms:   newForms(),
		adminID: adminID,
	}
}

func (h *Handler) Handlers() telegram.Handlers {
	return telegram.Handlers{
		OnCommand:  h.OnCommand,
		OnText:     h.OnText,
		OnCallback: h.OnCallback,
	}
}

func (h *Handler) OnCommand(ctx context.Context, u telegram.CommandUpdate) error {
	switch u.Command {
	case "start":
		return h.start(ctx, u.ChatID, u.UserID)
	case "stats":
		if h.adminID == 0 || u.UserID != h.adminID {
			return h.send(ctx, u.ChatID, msgUnknownCommand, nil)
		}
		s, err := h.engine.Stats(ctx)
		if err != nil {
			return h.fail(ctx, u.ChatID, err)
		}
		return h.send(ctx, u.ChatID, formatStats(s), nil)
	default:
		return h.send(ctx, u.ChatID, msgUnknownCommand, nil)
	}
}

func (h *Handler) start(ctx context.Context, chatID, id int64) error {
	h.forms.clear(id)
	user, err := h.engine.User(ctx, id)
	if err != nil {
		return h.fail(ctx, chatID, err)
	}
	h.log.Debug("user started bot", "user_id", id, "status", user.Status)

	if user.Status == matchmaking.StatusIdle && !user.Profile.Complete() {
		if err := h.send(ctx, chatID, msgWelcome, nil); err != nil {
			return err
		}
		h.forms.set(id, form{step: stepName})
		return h.send(ctx, chatID, msgAskName, backMenu())
	}
	return h.send(ctx, chatID, msgWelcome, menuFor(user.Status))
}

func (h *Handler) OnText(ctx context.Context, u telegram.TextUpdate) error {
	user, err := h.engine.User(ctx, u.UserID)
	if err != nil {
		return h.fail(ctx, u.ChatID, err)
	}

	// While chatting everything but the leave button goes to the companion.
	if user.Status == matchmaking.StatusChatting {
		if u.Text == btnLeave {
			return h.leave(ctx, u.ChatID, u.UserID)
		}
		return h.relay(ctx, u.ChatID, u.UserID, u.Text)
	}

	if u.Text == btnBack {
		h.forms.clear(u.UserID)
		return h.send(ctx, u.ChatID, msgMainMenu, menuFor(user.Status))
	}

	if st := h.forms.get(u.UserID); st.step != stepNone {
		return h.onFormInput(ctx, u, user, st)
	}

	switch u.Text {
	case btnProfile:
		return h.send(ctx, u.ChatID, formatProfile(user), profileMenu())
	case btnEditName:
		h.forms.set(u.UserID, form{step: stepName})
		return h.send(ctx, u.ChatID, msgAskName, backMenu())
	case btnEditAge:
		return h.send(ctx, u.ChatID, msgAskAge, ageKeyboard())
	case btnEditGender:
		return h.send(ctx, u.ChatID, msgAskGender, genderKeyboard())
	case btnEditCity:
		return h.send(ctx, u.ChatID, msgAskCity, cityKeyboard())
	case btnFilters:
		return h.send(ctx, u.ChatID, msgFilterMenu, filterMenu())
	case btnFilterGender:
		return h.send(ctx, u.ChatID, msgAskFilterGender, filterGenderKeyboard())
	case btnFilterAge:
		h.forms.set(u.UserID, form{step: stepFilterMin})
		return h.send(ctx, u.ChatID, msgAskFilterMin, backMenu())
	case btnFilterCity:
		h.forms.set(u.UserID, form{step: stepFilterCity})
		return h.send(ctx, u.ChatID, msgAskFilterCity, backMenu())
	case btnSearch:
		return h.search(ctx, u.ChatID, u.UserID)
	case btnCancel:
		return h.cancel(ctx, u.ChatID, u.UserID)
	case btnLeave:
		return h.leave(ctx, u.ChatID, u.UserID)
	default:
		return h.send(ctx, u.ChatID, msgUseMenu, menuFor(user.Status))
	}
}

func (h *Handler) onFormInput(ctx context.Context, u telegram.TextUpdate, user matchmaking.User, st form) error {
	switch st.step {
	case stepName:
		if !validName(u.Text) {
			return h.send(ctx, u.ChatID, msgBadName, nil)
		}
		if err := h.editProfile(ctx, user, func(p *matchmaking.Profile) { p.Name = u.Text }); err != nil {
			return h.fail(ctx, u.ChatID, err)
		}
		h.forms.clear(u.UserID)
		return h.send(ctx, u.ChatID, msgAskAge, ageKeyboard())

	case stepCityManual:
		if !validCity(u.Text) {
			return h.send(ctx, u.ChatID, msgBadCity, nil)
		}
		if err := h.editProfile(ctx, user, func(p *matchmaking.Profile) { p.City = u.Text }); err != nil {
			return h.fail(ctx, u.ChatID, err)
		}
		h.forms.clear(u.UserID)
		return h.send(ctx, u.ChatID, msgProfileSaved, menuFor(user.Status))

	case stepFilterMin:
		v, problem := parseFilterAge(u.Text)
		if problem != "" {
			return h.send(ctx, u.ChatID, problem, nil)
		}
		h.forms.set(u.UserID, form{step: stepFilterMax, filterMin: v})
		return h.send(ctx, u.ChatID, msgAskFilterMax, backMenu())

	case stepFilterMax:
		v, problem := parseFilterAge(u.Text)
		if problem != "" {
			return h.send(ctx, u.ChatID, problem, nil)
		}
		if v < st.filterMin {
			return h.send(ctx, u.ChatID, msgMaxBelowMin, nil)
		}
		minAge := st.filterMin
		if _, err := h.engine.UpdateFilter(ctx, u.UserID, matchmaking.FilterUpdate{MinAge: &minAge, MaxAge: &v}); err != nil {
			return h.fail(ctx, u.ChatID, err)
		}
		h.forms.clear(u.UserID)
		return h.send(ctx, u.ChatID, msgFilterSaved, menuFor(user.Status))

	case stepFilterCity:
		city := u.Text
		if strings.EqualFold(city, matchmaking.Any) {
			city = matchmaking.Any
		} else if !validCity(city) {
			return h.send(ctx, u.ChatID, msgBadCity, nil)
		}
		if _, err := h.engine.UpdateFilter(ctx, u.UserID, matchmaking.FilterUpdate{City: &city}); err != nil {
			return h.fail(ctx, u.ChatID, err)
		}
		h.forms.clear(u.UserID)
		return h.send(ctx, u.ChatID, msgFilterSaved, menuFor(user.Status))
	}

	h.forms.clear(u.UserID)
	return nil
}

func (h *Handler) OnCallback(ctx context.Context, u telegram.CallbackUpdate) error {
	if err := h.sender.AnswerCallback(ctx, u.CallbackID, ""); err != nil {
		h.log.Warn("callback answer failed", "user_id", u.UserID, "err", err)
	}

	user, err := h.engine.User(ctx, u.UserID)
	if err != nil {
		return h.fail(ctx, u.ChatID, err)
	}

	switch data := u.Data; {
	case strings.HasPrefix(data, cbAgePrefix):
		age, ok := parseAgeBracket(data)
		if !ok {
			return nil
		}
		if err := h.editProfile(ctx, user, func(p *matchmaking.Profile) { p.Age = age }); err != nil {
			return h.fail(ctx, u.ChatID, err)
		}
		h.edit(ctx, u, "✅ Age: "+strings.ReplaceAll(strings.TrimPrefix(data, cbAgePrefix), "_", "-"))
		return h.send(ctx, u.ChatID, msgAskGender, genderKeyboard())

	case strings.HasPrefix(data, cbGenderPrefix):
		gender := strings.TrimPrefix(data, cbGenderPrefix)
		if gender != "male" && gender != "female" {
			return nil
		}
		if err := h.editProfile(ctx, user, func(p *matchmaking.Profile) { p.Gender = gender }); err != nil {
			return h.fail(ctx, u.ChatID, err)
		}
		h.edit(ctx, u, "✅ Gender: "+gender)
		return h.send(ctx, u.ChatID, msgAskCity, cityKeyboard())

	case data == cbCityOther:
		h.forms.set(u.UserID, form{step: stepCityManual})
		return h.send(ctx, u.ChatID, msgAskCityManual, backMenu())

	case strings.HasPrefix(data, cbCityPrefix):
		city := strings.TrimPrefix(data, cbCityPrefix)
		if !slices.Contains(presetCities, city) {
			return nil
		}
		if err := h.editProfile(ctx, user, func(p *matchmaking.Profile) { p.City = city }); err != nil {
			return h.fail(ctx, u.ChatID, err)
		}
		h.edit(ctx, u, "✅ City: "+city)
		return h.send(ctx, u.ChatID, msgProfileSaved, menuFor(user.Status))

	case strings.HasPrefix(data, cbFilterGenderPrefix):
		gender := strings.TrimPrefix(data, cbFilterGenderPrefix)
		if gender != matchmaking.Any && gender != "male" && gender != "female" {
			return nil
		}
		if _, err := h.engine.UpdateFilter(ctx, u.UserID, matchmaking.FilterUpdate{Gender: &gender}); err != nil {
			return h.fail(ctx, u.ChatID, err)
		}
		h.edit(ctx, u, "✅ Looking for: "+gender)
		return h.send(ctx, u.ChatID, msgFilterSaved, filterMenu())
	}

	h.log.Debug("unknown callback", "user_id", u.UserID, "data", u.Data)
	return nil
}

func (h *Handler) search(ctx context.Context, chatID, id int64) error {
	err := h.engine.OnSearchRequested(ctx, id)
	switch {
	case err == nil:
		return h.send(ctx, chatID, msgSearchStarted, searchingMenu())
	case errors.Is(err, matchmaking.ErrProfileIncomplete):
		return h.send(ctx, chatID, msgProfileFirst, mainMenu())
	case errors.Is(err, matchmaking.ErrAlreadySearching):
		return h.send(ctx, chatID, msgAlreadySearching, searchingMenu())
	case errors.Is(err, matchmaking.ErrAlreadyChatting):
		return h.send(ctx, chatID, msgAlreadyChatting, chattingMenu())
	default:
		return h.fail(ctx, chatID, err)
	}
}

func (h *Handler) cancel(ctx context.Context, chatID, id int64) error {
	cancelled, err := h.engine.OnSearchCancelled(ctx, id)
	if err != nil {
		return h.fail(ctx, chatID, err)
	}
	if !cancelled {
		return h.send(ctx, chatID, msgNotSearching, mainMenu())
	}
	return h.send(ctx, chatID, msgSearchStopped, mainMenu())
}

func (h *Handler) leave(ctx context.Context, chatID, id int64) error {
	left, err := h.engine.OnChatExit(ctx, id)
	if err != nil {
		return h.fail(ctx, chatID, err)
	}
	if !left {
		return h.send(ctx, chatID, msgNotInChat, mainMenu())
	}
	return h.send(ctx, chatID, msgYouLeft, mainMenu())
}

func (h *Handler) relay(ctx context.Context, chatID, id int64, text string) error {
	err := h.engine.OnUserMessage(ctx, id, text)
	if errors.Is(err, matchmaking.ErrDeliveryFailed) {
		if errors.Is(err, matchmaking.ErrUnreachable) {
			return h.send(ctx, chatID, msgDeliveryFailed, mainMenu())
		}
		return h.send(ctx, chatID, msgNotDelivered, chattingMenu())
	}
	if err != nil {
		return h.fail(ctx, chatID, err)
	}
	return nil
}

func (h *Handler) editProfile(ctx context.Context, user matchmaking.User, fn func(*matchmaking.Profile)) error {
	p := user.Profile
	fn(&p)
	return h.engine.UpdateProfile(ctx, user.ID, p)
}

// edit replaces the question above a pressed inline button with the answer.
func (h *Handler) edit(ctx context.Context, u telegram.CallbackUpdate, text string) {
	if err := h.sender.EditText(ctx, u.ChatID, u.MessageID, text); err != nil {
		h.log.Warn("edit message failed", "user_id", u.UserID, "err", err)
	}
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, kb *telegram.Keyboard) error {
	return h.sender.Send(ctx, chatID, text, kb)
}

// fail tells the user something went wrong and returns err for logging.
func (h *Handler) fail(ctx context.Context, chatID int64, err error) error {
	if sendErr := h.send(ctx, chatID, msgTryAgain, nil); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}
