package epoch

import "errors"

var errAlreadyProtected = errors.New("epoch: thread already protected, nested protection is not allowed")
