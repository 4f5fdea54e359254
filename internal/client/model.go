package client

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrClientNotFound   = errors.New("client not found")
	ErrUnknownState     = errors.New("unknown state")
	ErrNoPendingRequest = errors.New("no pending request for client")
)

type Client struct {
	ID             string    `json:"id"`
	LastName       string    `json:"lastName"`
	FirstName      string    `json:"firstName"`
	RegisterNo     string    `json:"registerNo"`
	Organization   string    `json:"organization"`
	Department     string    `json:"department"`
	Position       string    `json:"position"`
	EditedAdmin    string    `json:"editedAdmin"`
	SubmittedAdmin string    `json:"submittedAdmin"`
	LetterNo       string    `json:"letterNo"`
	Pnumber        string    `json:"pnumber"`
	State          *int      `json:"state"`
	RegisteredAt   time.Time `json:"registeredAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Input is the writable part of a Client.
type Input struct {
	LastName       string `json:"lastName" validate:"required,max=255"`
	FirstName      string `json:"firstName" validate:"required,max=255"`
	RegisterNo     string `json:"registerNo" validate:"required,max=255"`
	Organization   string `json:"organization" validate:"max=255"`
	Department     string `json:"department" validate:"max=255"`
	Position       string `json:"position" validate:"max=255"`
	EditedAdmin    string `json:"editedAdmin" validate:"max=255"`
	SubmittedAdmin string `json:"submittedAdmin" validate:"max=255"`
	LetterNo       string `json:"letterNo" validate:"max=255"`
	Pnumber        string `json:"pnumber" validate:"max=255"`
	State          *int   `json:"state" validate:"omitnil,min=1"`
}

func (in *Input) Normalize() {
	for _, field := range []*string{
		&in.LastName, &in.FirstName, &in.RegisterNo, &in.Organization, &in.Department,
		&in.Position, &in.EditedAdmin, &in.SubmittedAdmin, &in.LetterNo, &in.Pnumber,
	} {
		*field = strings.TrimSpace(*field)
	}
}

type State struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Organization struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type PnumberRequest struct {
	ID         string     `json:"id"`
	ClientID   string     `json:"clientId"`
	Pnumber    string     `json:"pnumber"`
	SentAt     time.Time  `json:"sentAt"`
	AcceptedAt *time.Time `json:"acceptedAt"`
}

type RequestWithClient struct {
	PnumberRequest
	Client Client `json:"client"`
}
