package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"BikeSharingDashboard/src/processor"
	"BikeSharingDashboard/src/store"
	"BikeSharingDashboard/src/utils"
)

var validate = validator.New()

// filterQuery 请求中的过滤参数
type filterQuery struct {
	Start    string   `validate:"omitempty,datetime=2006-01-02"`
	End      string   `validate:"omitempty,datetime=2006-01-02"`
	Years    []int    `validate:"dive,min=1900,max=2100"`
	Seasons  []string `validate:"dive,required"`
	Weathers []string `validate:"dive,required"`
}

// values 同一参数可重复出现，也可用逗号分隔
func values(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parseFilterQuery(q url.Values) (filterQuery, error) {
	fq := filterQuery{
		Start:    strings.TrimSpace(q.Get("start")),
		End:      strings.TrimSpace(q.Get("end")),
		Seasons:  values(q, "season"),
		Weathers: values(q, "weather"),
	}
	for _, y := range values(q, "year") {
		year, err := strconv.Atoi(y)
		if err != nil {
			return fq, fmt.Errorf("year %q is not a number", y)
		}
		fq.Years = append(fq.Years, year)
	}
	return fq, nil
}

// FilterFromQuery 解析并校验过滤参数
func FilterFromQuery(q url.Values) (processor.FilterSpec, *APIError) {
	var spec processor.FilterSpec

	fq, err := parseFilterQuery(q)
	if err != nil {
		return spec, NewAPIError(http.StatusBadRequest, CodeInvalidParameter, err.Error())
	}
	if err := validate.Struct(fq); err != nil {
		return spec, validationError(err)
	}

	if (fq.Start == "") != (fq.End == "") {
		return spec, NewAPIError(http.StatusBadRequest, CodeInvalidParameter, "start and end must be given together")
	}
	if fq.Start != "" {
		start, _ := time.Parse(utils.DateLayout, fq.Start)
		end, _ := time.Parse(utils.DateLayout, fq.End)
		if end.Before(start) {
			return spec, NewAPIError(http.StatusBadRequest, CodeInvalidParameter, "end must not be before start")
		}
		spec.DateRange = &processor.DateRange{Start: start, End: end}
	}
	spec.Years = fq.Years

	for _, label := range fq.Seasons {
		s, ok := matchSeason(label)
		if !ok {
			return spec, NewAPIError(http.StatusBadRequest, CodeInvalidParameter, fmt.Sprintf("unknown season %q", label))
		}
		spec.Seasons = append(spec.Seasons, s)
	}
	for _, label := range fq.Weathers {
		w, ok := matchWeather(label)
		if !ok {
			return spec, NewAPIError(http.StatusBadRequest, CodeInvalidParameter, fmt.Sprintf("unknown weather %q", label))
		}
		spec.Weathers = append(spec.Weathers, w)
	}
	return spec, nil
}

// matchSeason 标签不区分大小写，也接受数字编码
func matchSeason(label string) (store.Season, bool) {
	if code, err := strconv.Atoi(label); err == nil {
		return store.SeasonFromCode(code)
	}
	return store.ParseSeason(label)
}

func matchWeather(label string) (store.Weather, bool) {
	if code, err := strconv.Atoi(label); err == nil {
		return store.WeatherFromCode(code)
	}
	return store.ParseWeather(label)
}

// ValidationDetail 单个字段的校验错误
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validationError(err error) *APIError {
	apiErr := NewAPIError(http.StatusBadRequest, CodeValidationFailed, "request validation failed")

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		apiErr.Message = err.Error()
		return apiErr
	}
	details := make([]ValidationDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ValidationDetail{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("failed on %s", fe.Tag()),
		})
	}
	apiErr.Details = details
	return apiErr
}
