// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package business holds the per-tenant profile model, the profile catalog,
// and the resolver that maps a dialed number to a business identity.
package business

// Service is one bookable offering in a business profile.
type Service struct {
	// ID is the stable service identifier sent to the booking API.
	ID string `yaml:"id" json:"id" validate:"required"`

	// Label is the human-readable name spoken to callers.
	Label string `yaml:"label" json:"label" validate:"required"`

	// DurationMinutes is the default appointment length.
	DurationMinutes int `yaml:"duration_minutes" json:"duration_minutes" validate:"required,min=5"`

	// Price is the display price, free-form (e.g. "$45", "45 CAD").
	Price string `yaml:"price" json:"price"`

	// Description is optional detail the agent may relay.
	Description string `yaml:"description" json:"description"`
}

// Profile describes one tenant: who they are, what they offer, and the
// credential the agent uses to book on their behalf.
//
// Description:
//
//	A Profile is resolved once per call and treated as an immutable value
//	for the call's lifetime. The catalog may reload underneath, but a
//	call that already resolved its profile keeps reading the copy it got.
//
// Thread Safety: Profile values are never mutated after load; safe for
// concurrent read access.
type Profile struct {
	// ID is the business identifier the resolver returns.
	ID string `yaml:"id" json:"id" validate:"required"`

	// Name is the business display name used in the greeting.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Timezone is the IANA timezone all availability is quoted in.
	Timezone string `yaml:"timezone" json:"timezone" validate:"required"`

	// Services lists the bookable offerings, in presentation order.
	Services []Service `yaml:"services" json:"services" validate:"required,min=1,dive"`

	// Policies is free-text scheduling rules fed into the system prompt.
	Policies string `yaml:"policies" json:"policies"`

	// AgentAPIKey authenticates this tenant against the booking API.
	AgentAPIKey string `yaml:"agent_api_key" json:"-" validate:"required"`
}
