package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
	"github.com/osse101/ChannelPointsMiner_Go/internal/eventlog"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
)

// EventsQuery holds the parsed /events query string.
type EventsQuery struct {
	ChannelID string     `validate:"omitempty,numeric"`
	Type      string     `validate:"omitempty,event_type"`
	Since     *time.Time `validate:"omitempty"`
	Until     *time.Time `validate:"omitempty"`
	Limit     int        `validate:"gte=0,lte=500"`
}

var queryValidator = newQueryValidator()

func newQueryValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		t := event.Type(fl.Field().String())
		for _, known := range event.AllTypes {
			if t == known {
				return true
			}
		}
		return false
	})
	return v
}

// HandleGetEvents lists persisted events newest first. reader may be nil
// when no event log is configured.
func HandleGetEvents(reader EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			respondError(w, http.StatusNotImplemented, ErrMsgEventsUnavailable)
			return
		}

		q, fields := parseEventsQuery(r)
		if len(fields) == 0 {
			if err := queryValidator.Struct(q); err != nil {
				fields = validationFields(err)
			}
		}
		if len(fields) > 0 {
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrMsgInvalidQuery, Fields: fields})
			return
		}

		events, err := reader.Recent(r.Context(), q.Filter())
		if err != nil {
			logger.FromContext(r.Context()).Error(LogMsgEventsFailed, "error", err)
			respondError(w, http.StatusInternalServerError, ErrMsgEventsFailed)
			return
		}
		respondList(w, events)
	}
}

// Filter converts the query into a repository filter.
func (q EventsQuery) Filter() eventlog.EventFilter {
	f := eventlog.EventFilter{Since: q.Since, Until: q.Until, Limit: q.Limit}
	if q.ChannelID != "" {
		id := q.ChannelID
		f.ChannelID = &id
	}
	if q.Type != "" {
		t := q.Type
		f.EventType = &t
	}
	return f
}

func parseEventsQuery(r *http.Request) (EventsQuery, map[string]string) {
	values := r.URL.Query()
	q := EventsQuery{
		ChannelID: values.Get(QueryChannelID),
		Type:      values.Get(QueryType),
	}
	fields := map[string]string{}

	if v := values.Get(QueryLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields[QueryLimit] = "must be an integer"
		}
		q.Limit = n
	}
	for name, dst := range map[string]**time.Time{QuerySince: &q.Since, QueryUntil: &q.Until} {
		v := values.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			fields[name] = "must be an RFC 3339 timestamp"
			continue
		}
		*dst = &t
	}
	return q, fields
}

var fieldNames = map[string]string{
	"ChannelID": QueryChannelID,
	"Type":      QueryType,
	"Limit":     QueryLimit,
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["query"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		name, ok := fieldNames[fe.Field()]
		if !ok {
			name = fe.Field()
		}
		fields[name] = "failed " + fe.Tag()
	}
	return fields
}
