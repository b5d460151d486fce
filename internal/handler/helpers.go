package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/dropaz_api/internal/utils"
)

type errorMapping struct {
	status  int
	message string
}

// knownErrors maps service sentinels to HTTP status and user facing text.
var knownErrors = map[error]errorMapping{
	utils.ErrInvalidToken:       {401, "Token etibarsızdır və ya müddəti bitib"},
	utils.ErrInvalidCredentials: {401, "E-poçt və ya şifrə yanlışdır"},
	utils.ErrAccountInactive:    {403, "Hesab aktiv deyil"},
	utils.ErrUserNotFound:       {404, "İstifadəçi tapılmadı"},
	utils.ErrPhoneExists:        {400, "Bu nömrə artıq qeydiyyatdan keçib"},
	utils.ErrPhoneNotRegistered: {400, "Bu nömrə qeydiyyatdan keçməyib"},
	utils.ErrInvalidPhone:       {400, "Düzgün telefon nömrəsi daxil edin"},
	utils.ErrOTPInvalid:         {400, "OTP kodu yanlışdır və ya müddəti bitib"},
	utils.ErrCategoryNotFound:   {404, "Kateqoriya tapılmadı"},
	utils.ErrProductNotFound:    {404, "Məhsul tapılmadı"},
	utils.ErrSlugExists:         {400, "Bu slug artıq istifadə olunur"},
	utils.ErrCategoryDepth:      {400, "Kateqoriya strukturu maksimum 3 səviyyə ola bilər"},
	utils.ErrCategoryCycle:      {400, "Kateqoriya öz alt kateqoriyasının altına köçürülə bilməz"},
	utils.ErrInvalidIcon:        {400, "Düzgün FontAwesome ikon sinfi daxil edin"},
	utils.ErrInvalidEmail:       {400, "Düzgün e-poçt ünvanı daxil edin"},
	utils.ErrSubscriberNotFound: {404, "Abunəçi tapılmadı"},
	utils.ErrInvalidUpload:      {400, "Yalnız 5MB-dan kiçik şəkil faylları qəbul olunur"},
	utils.ErrStorageDisabled:    {503, "Fayl yükləmə hazırda mümkün deyil"},
	utils.ErrSearchDisabled:     {503, "Axtarış xidməti hazırda mümkün deyil"},
}

// respondError writes the envelope for err. Unknown errors are logged and reported as 500.
func respondError(c *gin.Context, err error) {
	if verr, ok := utils.AsValidationError(err); ok {
		utils.ValidationFailed(c, verr)
		return
	}

	var cooldown *utils.CooldownError
	if errors.As(err, &cooldown) {
		utils.ErrorWithData(c, 429, utils.ErrOTPCooldown.Error(),
			fmt.Sprintf("Yeni OTP kodu üçün %d saniyə gözləyin", cooldown.Remaining),
			gin.H{"remaining_seconds": cooldown.Remaining})
		return
	}

	for sentinel, m := range knownErrors {
		if errors.Is(err, sentinel) {
			utils.Error(c, m.status, sentinel.Error(), m.message)
			return
		}
	}

	log.Error().Err(err).
		Str("request_id", c.GetString("request_id")).
		Str("path", c.FullPath()).
		Msg("Unhandled request error")
	utils.Error(c, 500, "INTERNAL_ERROR", "Daxili xəta baş verdi")
}

func init() {
	// Binding errors report json field names instead of Go struct field names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

var bindingMessages = map[string]string{
	"required": "Bu sahə tələb olunur",
	"email":    "Düzgün e-poçt ünvanı daxil edin",
	"min":      "Dəyər çox kiçikdir",
	"gte":      "Dəyər mənfi ola bilməz",
	"oneof":    "Yanlış seçim",
}

// bindFailed converts a ShouldBind error into a 400 validation response.
func bindFailed(c *gin.Context, err error) {
	verr := utils.NewValidationError()
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			msg, ok := bindingMessages[fe.Tag()]
			if !ok {
				msg = "Yanlış dəyər"
			}
			verr.Add(fe.Field(), msg)
		}
	} else {
		verr.Add("non_field_errors", "Sorğunun formatı yanlışdır")
	}
	utils.ValidationFailed(c, verr)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.Error(c, 400, "INVALID_ID", "Yanlış ID")
		return 0, false
	}
	return id, true
}

// queryInt returns the integer query value or def when it is missing or malformed.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func queryDecimal(c *gin.Context, key string) *decimal.Decimal {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

func queryBool(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

// parseIDList reads "1,2,3". Malformed entries are skipped.
func parseIDList(raw string) []int64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
