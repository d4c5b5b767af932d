package web

import (
	"time"

	vm "github.com/ericfisherdev/credpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/credpanel/internal/card"
	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

// busyLookup returns the in-flight flags of a credential.
type busyLookup func(id string) card.Busy

// toDashboardViewModel builds the card views for every credential and the
// header counters.
func toDashboardViewModel(creds []model.Credential, busy busyLookup, loc *time.Location, csrf string) vm.DashboardViewModel {
	d := vm.DashboardViewModel{
		Cards:     make([]card.View, 0, len(creds)),
		Total:     len(creds),
		AuthTypes: toAuthTypeOptions(),
		CSRFToken: csrf,
	}

	for _, c := range creds {
		v := card.BuildIn(c, busy(c.ID), loc)
		if v.Enabled {
			d.Enabled++
		}
		if v.Healthy {
			d.Healthy++
		}
		d.Cards = append(d.Cards, v)
	}

	return d
}

func toAuthTypeOptions() []vm.AuthTypeOption {
	opts := make([]vm.AuthTypeOption, 0, len(model.KnownAuthTypes))
	for _, at := range model.KnownAuthTypes {
		meta := card.Classify(string(at))
		opts = append(opts, vm.AuthTypeOption{
			Key:   string(at),
			Label: meta.Label,
			Icon:  meta.Icon,
			Color: meta.Color,
		})
	}
	return opts
}

// toEditFormViewModel pre-fills the edit form from the stored credential.
func toEditFormViewModel(c model.Credential, csrf string) vm.EditFormViewModel {
	authType := c.Data.ResolvedAuthType()
	v := card.Build(c, card.Busy{})

	return vm.EditFormViewModel{
		ID:          c.ID,
		DisplayName: v.DisplayName,
		Badge:       v.Badge,
		Name:        c.Name,
		Email:       c.Data.Email,
		Region:      c.Data.Region,
		BaseURL:     c.Data.BaseURL,
		ShowRegion:  authType == string(model.AuthTypeBedrock),
		ShowBaseURL: authType == string(model.AuthTypeCCR),
		CSRFToken:   csrf,
	}
}

// toNewFormViewModel describes the creation form of a known auth type.
func toNewFormViewModel(at model.AuthType, csrf string) vm.NewFormViewModel {
	f := vm.NewFormViewModel{
		AuthType:  string(at),
		Badge:     card.Classify(string(at)),
		CSRFToken: csrf,
	}
	if info, ok := model.LookupAuthTypeInfo(at); ok {
		f.HelpHTML = RenderMarkdown(info.Help)
	}

	switch at {
	case model.AuthTypeOAuth, model.AuthTypeClaudeCode:
		f.ShowAccessToken = true
		f.ShowRefreshToken = true
	case model.AuthTypeConsole:
		f.ShowAccessToken = true
		f.ShowRefreshToken = true
		f.ShowOrgName = true
	case model.AuthTypeSetupToken:
		f.ShowAccessToken = true
	case model.AuthTypeBedrock:
		f.ShowAWSKeys = true
		f.ShowRegion = true
	case model.AuthTypeCCR:
		f.ShowAPIKey = true
		f.ShowBaseURL = true
	}

	return f
}
