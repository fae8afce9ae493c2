package chatbot

import (
	"github.com/oggyb/anonchat/internal/matchmaking"
	"github.com/oggyb/anonchat/internal/telegram"
)

const (
	btnProfile = "👤 My profile"
	btnFilters = "⚙️ Edit filters"
	btnSearch  = "🔍 Find a companion"
	btnCancel  = "🔍 Cancel search"
	btnLeave   = "🚪 Leave chat"
	btnBack    = "🔙 Back"

	btnEditName   = "✏️ Edit name"
	btnEditAge    = "📅 Edit age"
	btnEditGender = "⚧ Edit gender"
	btnEditCity   = "🏙 Edit city"

	btnFilterGender = "Gender"
	btnFilterAge    = "Age"
	btnFilterCity   = "City"
)

const (
	cbAgePrefix          = "age_"
	cbGenderPrefix       = "gender_"
	cbCityPrefix         = "city_"
	cbCityOther          = "city_other"
	cbFilterGenderPrefix = "filter_gender_"
)

var presetCities = []string{"Moscow", "Saint Petersburg", "Novosibirsk"}

func reply(rows ...[]string) *telegram.Keyboard {
	return &telegram.Keyboard{Reply: rows}
}

func mainMenu() *telegram.Keyboard {
	return reply([]string{btnProfile}, []string{btnFilters}, []string{btnSearch})
}

func searchingMenu() *telegram.Keyboard { return reply([]string{btnCancel}) }

func chattingMenu() *telegram.Keyboard { return reply([]string{btnLeave}) }

func backMenu() *telegram.Keyboard { return reply([]string{btnBack}) }

func profileMenu() *telegram.Keyboard {
	return reply(
		[]string{btnEditName},
		[]string{btnEditAge},
		[]string{btnEditGender},
		[]string{btnEditCity},
		[]string{btnBack},
	)
}

func filterMenu() *telegram.Keyboard {
	return reply([]string{btnFilterGender}, []string{btnFilterAge}, []string{btnFilterCity}, []string{btnBack})
}

// menuFor returns the keyboard matching what the user can do in status.
func menuFor(status matchmaking.Status) *telegram.Keyboard {
	switch status {
	case matchmaking.StatusSearching:
		return searchingMenu()
	case matchmaking.StatusChatting:
		return chattingMenu()
	default:
		return mainMenu()
	}
}

func ageKeyboard() *telegram.Keyboard {
	return &telegram.Keyboard{Inline: [][]telegram.Button{
		{{Text: "18-25", Data: "age_18_25"}, {Text: "26-35", Data: "age_26_35"}},
		{{Text: "36-50", Data: "age_36_50"}, {Text: "51-100", Data: "age_51_100"}},
	}}
}

func genderKeyboard() *telegram.Keyboard {
	return &telegram.Keyboard{Inline: [][]telegram.Button{
		{{Text: "👨 Male", Data: "gender_male"}, {Text: "👩 Female", Data: "gender_female"}},
	}}
}

func cityKeyboard() *telegram.Keyboard {
	rows := make([][]telegram.Button, 0, len(presetCities)+1)
	for _, city := range presetCities {
		rows = append(rows, []telegram.Button{{Text: city, Data: cbCityPrefix + city}})
	}
	rows = append(rows, []telegram.Button{{Text: "Other", Data: cbCityOther}})
	return &telegram.Keyboard{Inline: rows}
}

func filterGenderKeyboard() *telegram.Keyboard {
	return &telegram.Keyboard{Inline: [][]telegram.Button{{
		{Text: "Any", Data: cbFilterGenderPrefix + matchmaking.Any},
		{Text: "Male", Data: cbFilterGenderPrefix + "male"},
		{Text: "Female", Data: cbFilterGenderPrefix + "female"},
	}}}
}
