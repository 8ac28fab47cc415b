package routes

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/mattn/go-sqlite3"

	"github.com/mbolis/dynaform/app"
	"github.com/mbolis/dynaform/httpx"
	"github.com/mbolis/dynaform/log"
	"github.com/mbolis/dynaform/model"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

// Login exchanges Basic credentials (email and password) for a bearer token.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		r.Body = io.NopCloser(strings.NewReader(body.Encode()))
		r.Header.Set("content-type", "application/x-www-form-urlencoded")
		r.Header.Set("content-length", strconv.Itoa(len(body.Encode())))
		app.UserCredentials(w, r)
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		body := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "/", strings.NewReader(body.Encode()))
		if err != nil {
			httpx.LogInternalError(w, "refresh.new_request", err)
			return
		}
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
		req.Header.Set("content-length", strconv.Itoa(len(body.Encode())))

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		if resp.Status() != http.StatusOK {
			log.Debugf("refresh.token: rejected with status %d", resp.Status())
		}
		if err = resp.Flush(w); err != nil {
			log.Warnf("refresh.flush: %s", err)
		}
	}
}

func Signup(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := model.User{}
		err := render.DecodeJSON(r.Body, &user)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		user.Email = strings.TrimSpace(user.Email)
		user.FullName = strings.TrimSpace(user.FullName)
		if user.Email == "" || user.FullName == "" || user.Password == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "signup.validate", "full_name, email and password are required")
			return
		}

		hash, err := httpx.HashPassword(user.Password)
		if err != nil {
			httpx.LogInternalError(w, "signup.hash_password", err)
			return
		}

		var userId int
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO user (email, full_name, phone_number, password_hash)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			user.Email,
			user.FullName,
			user.Phone,
			hash,
		).Scan(&userId)
		var sqliteErr sqlite3.Error
		switch {
		case errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
			httpx.LogStatusMsg(w, r, http.StatusConflict, log.DebugLevel, "signup.duplicate", "email %s is already registered", user.Email)
			return
		case err != nil:
			httpx.LogInternalError(w, "db.insert_user", err)
			return
		}

		log.Infof("user %d signed up: %s", userId, user.Email)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message": "User created successfully",
			"id":      userId,
		})
	}
}
