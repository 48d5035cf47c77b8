package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/nyaruka/phonenumbers"
)

// HTTPControllerRoutes holds the mount points for the JSON API
type HTTPControllerRoutes struct {
	Signup           string
	Login            string
	Refresh          string
	Logout           string
	SendVerification string
	VerifyEmail      string
	ForgotPassword   string
	ResetPassword    string
}

// HTTPController exposes the auth flows as a JSON API over fiber
type HTTPController struct {
	Debug  bool
	Logger Logger
	Routes *HTTPControllerRoutes

	cfg       Config
	auth      Authenticator
	register  *RegisterUserHandler
	sendVerif *SendVerificationHandler
	verify    *VerifyEmailHandler
	resetInit *PasswordResetInitHandler
	reset     *PasswordResetHandler
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func WithControllerLogger(l Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerDebug(debug bool) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Debug = debug
		return c
	}
}

// NewHTTPController wires the flow handlers behind JSON endpoints
func NewHTTPController(
	cfg Config,
	auther Authenticator,
	register *RegisterUserHandler,
	sendVerif *SendVerificationHandler,
	verify *VerifyEmailHandler,
	resetInit *PasswordResetInitHandler,
	reset *PasswordResetHandler,
	opts ...HTTPControllerOption,
) *HTTPController {
	c := &HTTPController{
		Logger: defLogger{},
		Routes: &HTTPControllerRoutes{
			Signup:           "/signup",
			Login:            "/login",
			Refresh:          "/refresh",
			Logout:           "/logout",
			SendVerification: "/send-verification",
			VerifyEmail:      "/verify-email/:token",
			ForgotPassword:   "/forgot-password",
			ResetPassword:    "/reset-password/:token",
		},
		cfg:       cfg,
		auth:      auther,
		register:  register,
		sendVerif: sendVerif,
		verify:    verify,
		resetInit: resetInit,
		reset:     reset,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// RegisterRoutes mounts the auth endpoints on the given router
func (a *HTTPController) RegisterRoutes(app fiber.Router) {
	app.Post(a.Routes.Signup, a.Signup)
	app.Post(a.Routes.Login, a.Login)
	app.Get(a.Routes.Refresh, a.Refresh)
	app.Post(a.Routes.Logout, a.Logout)
	app.Post(a.Routes.SendVerification, a.SendVerification)
	app.Get(a.Routes.VerifyEmail, a.VerifyEmail)
	app.Post(a.Routes.ForgotPassword, a.ForgotPassword)
	app.Post(a.Routes.ResetPassword, a.ResetPassword)
}

// SignupPayload is the signup request body
type SignupPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Password  string `json:"password"`
	// Roles is optional; unknown tags are rejected and an empty list gets
	// the default role
	Roles RoleList `json:"roles"`
}

// Validate will validate the payload
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(validatePhoneNumber)),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
	)
}

// validatePhoneNumber accepts an empty phone. A present value must parse as a
// real number, country inferred from the international prefix.
func validatePhoneNumber(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return fmt.Errorf("invalid phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(num) {
		return fmt.Errorf("invalid phone number")
	}

	return nil
}

// Signup creates the account and reports whether the verification email went
// out. A failed email send does not fail the signup.
func (a *HTTPController) Signup(ctx *fiber.Ctx) error {
	payload := new(SignupPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse signup payload")
	}

	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signup payload").
			WithCode(goerrors.CodeBadRequest)
	}

	if a.Debug {
		a.Logger.Debug("signup payload: %s", print.MaybePrettyJSON(payload))
	}

	var resp *RegisterUserResponse
	msg := RegisterUserMessage{
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Username:   payload.Username,
		Email:      payload.Email,
		Phone:      payload.Phone,
		Roles:      payload.Roles,
		Password:   payload.Password,
		OnResponse: func(r *RegisterUserResponse) { resp = r },
	}

	if err := a.register.Execute(ctx.UserContext(), msg); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"userInfo":  resp.User.Public(),
		"emailSent": resp.EmailSent,
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login verifies credentials and establishes the session. The access token
// travels in the body, the refresh token only in the http-only cookie.
func (a *HTTPController) Login(ctx *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse login payload")
	}

	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload").
			WithCode(goerrors.CodeBadRequest)
	}

	result, err := a.auth.Login(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	a.setSessionCookie(ctx, result.RefreshToken, result.RefreshExpiresAt)

	return ctx.JSON(fiber.Map{
		"user":        result.User.Public(),
		"accessToken": result.AccessToken,
	})
}

// Refresh exchanges the session cookie for a fresh access token
func (a *HTTPController) Refresh(ctx *fiber.Ctx) error {
	raw := ctx.Cookies(a.cfg.GetCookieName())

	result, err := a.auth.Refresh(ctx.UserContext(), raw)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"user":        result.User.Public(),
		"accessToken": result.AccessToken,
	})
}

// Logout revokes the session and clears the cookie. It succeeds even when no
// session exists so clients can always call it.
func (a *HTTPController) Logout(ctx *fiber.Ctx) error {
	raw := ctx.Cookies(a.cfg.GetCookieName())

	if err := a.auth.Logout(ctx.UserContext(), raw); err != nil {
		a.Logger.Error("logout error: %s", err)
	}

	a.clearSessionCookie(ctx)

	return ctx.SendStatus(fiber.StatusNoContent)
}

// EmailPayload is the body for flows keyed only on an email address
type EmailPayload struct {
	Email string `json:"email"`
}

// Validate will validate the payload
func (r EmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// SendVerification re-sends the verification email for an account
func (a *HTTPController) SendVerification(ctx *fiber.Ctx) error {
	payload := new(EmailPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse verification payload")
	}

	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification payload").
			WithCode(goerrors.CodeBadRequest)
	}

	if err := a.sendVerif.Execute(ctx.UserContext(), SendVerificationMessage{Email: payload.Email}); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{"success": true})
}

// VerifyEmail consumes the token from the emailed link. An expired token gets
// an explicit flag so clients can offer a resend.
func (a *HTTPController) VerifyEmail(ctx *fiber.Ctx) error {
	token := ctx.Params("token")

	var resp *VerifyEmailResponse
	msg := VerifyEmailMessage{
		Token:      token,
		OnResponse: func(r *VerifyEmailResponse) { resp = r },
	}

	if err := a.verify.Execute(ctx.UserContext(), msg); err != nil {
		if IsTokenExpiredError(err) {
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"expired": true,
				"error":   "verification link has expired",
			})
		}
		return err
	}

	return ctx.JSON(fiber.Map{
		"success":         true,
		"alreadyVerified": resp.AlreadyVerified,
	})
}

// ForgotPassword kicks off the reset flow. An unknown email is reported as
// not found; the product surfaces a signup prompt instead of hiding it.
func (a *HTTPController) ForgotPassword(ctx *fiber.Ctx) error {
	payload := new(EmailPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse reset payload")
	}

	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid reset payload").
			WithCode(goerrors.CodeBadRequest)
	}

	if err := a.resetInit.Execute(ctx.UserContext(), PasswordResetInitMessage{Email: payload.Email}); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{"success": true})
}

// ResetPasswordPayload is the body carrying the replacement password
type ResetPasswordPayload struct {
	Password string `json:"password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
	)
}

// ResetPassword completes the reset flow and revokes any open session
func (a *HTTPController) ResetPassword(ctx *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse reset payload")
	}

	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid reset payload").
			WithCode(goerrors.CodeBadRequest)
	}

	msg := PasswordResetMessage{
		Token:    ctx.Params("token"),
		Password: payload.Password,
	}

	if err := a.reset.Execute(ctx.UserContext(), msg); err != nil {
		return err
	}

	a.clearSessionCookie(ctx)

	return ctx.JSON(fiber.Map{"success": true})
}

// setSessionCookie aligns the cookie lifetime with the refresh token expiry.
// SameSite None because the API and the web clients live on different
// origins.
func (a *HTTPController) setSessionCookie(ctx *fiber.Ctx, token string, expiresAt time.Time) {
	ctx.Cookie(&fiber.Cookie{
		Name:     a.cfg.GetCookieName(),
		Value:    token,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (a *HTTPController) clearSessionCookie(ctx *fiber.Ctx) {
	ctx.Cookie(&fiber.Cookie{
		Name:     a.cfg.GetCookieName(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

// ErrorHandler maps structured errors onto HTTP responses. Mount it as the
// fiber app's ErrorHandler so every endpoint shares the same error shape.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(ctx *fiber.Ctx, err error) error {
		rid := requestID(ctx)

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			status := statusFromError(richErr)
			if status >= fiber.StatusInternalServerError {
				logger.Error("request %s failed with %d: %s", rid, status, err)
			} else {
				logger.Info("request %s rejected with %d: %s", rid, status, err)
			}

			body := fiber.Map{
				"success": false,
				"error":   richErr.Message,
			}
			if richErr.TextCode != "" {
				body["textCode"] = richErr.TextCode
			}
			if richErr.TextCode == TextCodeTokenExpired {
				body["expired"] = true
			}
			if richErr.TextCode == TextCodeEmailNotVerified {
				body["emailVerificationRequired"] = true
			}

			return ctx.Status(status).JSON(body)
		}

		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			if fiberErr.Code >= fiber.StatusInternalServerError {
				logger.Error("request %s failed with %d: %s", rid, fiberErr.Code, err)
			} else {
				logger.Info("request %s rejected with %d: %s", rid, fiberErr.Code, err)
			}
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{
				"success": false,
				"error":   fiberErr.Message,
			})
		}

		logger.Error("request %s failed, unhandled error: %s", rid, err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "internal server error",
		})
	}
}

// requestID reads the correlation id set by the requestid middleware, empty
// when the middleware is not mounted
func requestID(ctx *fiber.Ctx) string {
	if id, ok := ctx.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

func statusFromError(err *goerrors.Error) int {
	if err.Code >= 400 && err.Code < 600 {
		return int(err.Code)
	}

	switch err.Category {
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
