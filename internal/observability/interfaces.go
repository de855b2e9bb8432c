// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

// Observable is implemented by components that accept an observer after
// construction.
type Observable interface {
	// GetComponentName returns the component identifier
	GetComponentName() string
	SetObserver(observer *StandardObserver)
}
