package feedback

import "github.com/rohankatakam/feedbackd/internal/models"

// Response is the caller-facing shape of a Result:
//
//	accepted:           {"message":"ok","feedback":{...},"saved":true,"forwarded":bool[,"forward_error":"..."]}
//	rejected:           {"error":"..."}
//	persistence failed: {"error":"...","saved":false,"feedback":{...}}
type Response struct {
	Message      string                 `json:"message,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Feedback     *models.FeedbackRecord `json:"feedback,omitempty"`
	Saved        *bool                  `json:"saved,omitempty"`
	Forwarded    *bool                  `json:"forwarded,omitempty"`
	ForwardError string                 `json:"forward_error,omitempty"`
}

// IsError reports whether the response carries a failure
func (r Response) IsError() bool {
	return r.Error != ""
}

// Response converts r to its caller-facing shape
func (r Result) Response() Response {
	switch r.Outcome {
	case OutcomeAccepted:
		rec := r.Record
		saved, forwarded := true, r.Forwarded
		return Response{
			Message:      "ok",
			Feedback:     &rec,
			Saved:        &saved,
			Forwarded:    &forwarded,
			ForwardError: r.ForwardError,
		}
	case OutcomePersistenceFailed:
		rec := r.Record
		saved := false
		return Response{
			Error:    errorText(r.Err, "failed to persist feedback"),
			Feedback: &rec,
			Saved:    &saved,
		}
	default:
		return Response{Error: errorText(r.Err, "feedback text is empty")}
	}
}

func errorText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}
