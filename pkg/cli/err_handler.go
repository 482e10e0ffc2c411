package cli

import (
	"go.uber.org/zap"

	"github.com/awsmap/awsmap/pkg/multierr"
)

type ErrorHandler struct {
	Verbose       bool
	PostPrintHook func()
}

func (h ErrorHandler) PrintErr(err error) {
	h.printErr(err, 0)
	if h.PostPrintHook != nil {
		h.PostPrintHook()
	}
}

func (h ErrorHandler) printErr(err error, num int) (nextNum int) {
	log := zap.L().Sugar()

	errFmt := "%v"
	if h.Verbose {
		errFmt = "%+v"
	}

	merr, ok := err.(multierr.Error)
	if ok {
		switch len(merr) {
		case 0:
			return num

		case 1:
			err = merr[0]

		default:
			log.Errorf("%d errors:", len(merr))
			for _, err := range merr {
				num = h.printErr(err, num+1)
			}
			return num
		}
	}

	log.Errorf("[err %d] "+errFmt, num, err)
	return num
}
