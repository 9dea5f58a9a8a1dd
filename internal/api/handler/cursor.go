package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

func DecodeJobCursor(cursorStr string) (*booking.JobCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	jobID, err := strconv.ParseInt(string(decoded), 10, 64)
	if err != nil || jobID <= 0 {
		return nil, fmt.Errorf("invalid job id in cursor")
	}

	return &booking.JobCursor{JobID: jobID}, nil
}

func EncodeJobCursor(cursor *booking.JobCursor) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatInt(cursor.JobID, 10)))
}
