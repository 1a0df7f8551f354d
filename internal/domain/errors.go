package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrIssueNotFound    = errors.New("issue not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrPRNotFound       = errors.New("pull request not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrConcernNotFound  = errors.New("concern not found")
	ErrFeedbackNotFound = errors.New("feedback request not found")
)
