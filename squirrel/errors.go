package squirrel

import "errors"

var (
	ErrNotYourTurn    = errors.New("not your turn")
	ErrCardNotInHand  = errors.New("card not in hand")
	ErrMustFollowSuit = errors.New("must follow suit")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
